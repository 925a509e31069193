package harness

// Step outcomes recorded in the trace.
const (
	OutcomeOK           = "ok"
	OutcomeDenied       = "denied"
	OutcomeStoreFailure = "store_failure"
	OutcomeArmed        = "armed"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int            `json:"step"`
	Action  string         `json:"action"`
	Actor   string         `json:"actor,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`

	// Ranking lists candidate ids in rank order once the step has settled.
	Ranking []string `json:"ranking"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the canonical form of the view re-aggregated from the
	// store after the last step.
	Final map[string]any `json:"final,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
