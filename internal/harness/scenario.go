package harness

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shortlist/internal/ir"
)

// Scenario defines a conformance scenario: a group, its registry, a
// sequence of verbs and the assertions that must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Viewer is the actor whose view is derived.
	Viewer string `yaml:"viewer"`

	// Today is the YYYY-MM-DD date the clock starts on. Defaults to the
	// deterministic clock's epoch.
	Today string `yaml:"today,omitempty"`

	// Group is the policy the engine runs under.
	Group Group `yaml:"group,omitempty"`

	// Candidates seeds the registry before the engine loads.
	Candidates []Candidate `yaml:"candidates"`

	// Steps are executed in order; each one is settled before the next.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view.
	Assertions []Assertion `yaml:"assertions"`
}

// Group mirrors the policy document fields a scenario may set.
type Group struct {
	Admins      []string `yaml:"admins,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
	DefaultTime string   `yaml:"default_time,omitempty"`
}

// Candidate is a seeded registry item. ID is used verbatim as the
// candidate id.
type Candidate struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Author     string `yaml:"author,omitempty"`
	Category   string `yaml:"category,omitempty"`
	ProposedBy string `yaml:"proposed_by,omitempty"`
	Retracted  bool   `yaml:"retracted,omitempty"`
}

// Step invokes one verb.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	Actor     string `yaml:"actor,omitempty"`
	Candidate string `yaml:"candidate,omitempty"`
	Weight    int    `yaml:"weight,omitempty"`
	Note      string `yaml:"note,omitempty"`
	Date      string `yaml:"date,omitempty"`
	Time      string `yaml:"time,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Category  string `yaml:"category,omitempty"`

	// As names a proposed candidate so later steps can refer to it.
	As string `yaml:"as,omitempty"`

	// Expect is the expected outcome: ok (default), denied or
	// store_failure.
	Expect string `yaml:"expect,omitempty"`

	// Reason is the expected denial reason when Expect is denied.
	Reason string `yaml:"reason,omitempty"`
}

// Assertion validates the final view.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Actor      string   `yaml:"actor,omitempty"`
	Candidate  string   `yaml:"candidate,omitempty"`
	Candidates []string `yaml:"candidates,omitempty"`
	Weights    []int    `yaml:"weights,omitempty"`
	Weight     int      `yaml:"weight,omitempty"`
	Date       string   `yaml:"date,omitempty"`

	// Total is the expected total weight (used by total).
	Total *int `yaml:"total,omitempty"`

	// Verb and Allowed are used by can.
	Verb    string `yaml:"verb,omitempty"`
	Allowed *bool  `yaml:"allowed,omitempty"`
}

// Step actions.
const (
	ActionPropose          = "propose"
	ActionNominate         = "nominate"
	ActionWithdraw         = "withdraw"
	ActionScore            = "score"
	ActionRetractScore     = "retract_score"
	ActionReset            = "reset"
	ActionResetEveryone    = "reset_everyone"
	ActionSchedule         = "schedule"
	ActionContinue         = "continue"
	ActionRetractCandidate = "retract_candidate"
	ActionRestoreCandidate = "restore_candidate"
	ActionPurge            = "purge"
	ActionFailNextWrite    = "fail_next_write"
)

// Assertion type constants.
const (
	AssertRanking          = "ranking"
	AssertTotal            = "total"
	AssertUsed             = "used"
	AssertActiveNomination = "active_nomination"
	AssertUsedWeights      = "used_weights"
	AssertCan              = "can"
	AssertUpcoming         = "upcoming"
)

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Viewer == "" {
		return fmt.Errorf("viewer is required")
	}
	if s.Today != "" {
		if _, err := time.Parse(ir.DateLayout, s.Today); err != nil {
			return fmt.Errorf("today %q is not YYYY-MM-DD", s.Today)
		}
	}
	if s.Group.DefaultTime != "" && !hhmm.MatchString(s.Group.DefaultTime) {
		return fmt.Errorf("group.default_time %q is not HH:MM", s.Group.DefaultTime)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Candidates))
	for i, c := range s.Candidates {
		if c.ID == "" {
			return fmt.Errorf("candidates[%d]: id is required", i)
		}
		if c.Title == "" {
			return fmt.Errorf("candidates[%d]: title is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("candidates[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks the fields each action needs.
func validateStep(index int, st *Step) error {
	if st.Action == "" {
		return fmt.Errorf("steps[%d]: action is required", index)
	}
	if st.Action != ActionFailNextWrite && st.Actor == "" {
		return fmt.Errorf("steps[%d]: actor is required for %s", index, st.Action)
	}

	switch st.Action {
	case ActionPropose:
		if st.Title == "" {
			return fmt.Errorf("steps[%d]: title is required for propose", index)
		}
	case ActionNominate, ActionRetractScore, ActionRetractCandidate, ActionRestoreCandidate, ActionPurge:
		if st.Candidate == "" {
			return fmt.Errorf("steps[%d]: candidate is required for %s", index, st.Action)
		}
	case ActionScore:
		if st.Candidate == "" {
			return fmt.Errorf("steps[%d]: candidate is required for score", index)
		}
	case ActionSchedule:
		if st.Candidate == "" || st.Date == "" {
			return fmt.Errorf("steps[%d]: candidate and date are required for schedule", index)
		}
	case ActionContinue:
		if st.Date == "" {
			return fmt.Errorf("steps[%d]: date is required for continue", index)
		}
	case ActionWithdraw, ActionReset, ActionResetEveryone, ActionFailNextWrite:
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	switch st.Expect {
	case "", OutcomeOK, OutcomeStoreFailure:
		if st.Reason != "" {
			return fmt.Errorf("steps[%d]: reason requires expect: denied", index)
		}
	case OutcomeDenied:
	default:
		return fmt.Errorf("steps[%d]: unknown expect %q", index, st.Expect)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRanking, AssertUsed:
	case AssertTotal:
		if a.Candidate == "" || a.Total == nil {
			return fmt.Errorf("assertions[%d]: candidate and total are required for total", index)
		}
	case AssertActiveNomination, AssertUsedWeights:
		if a.Actor == "" {
			return fmt.Errorf("assertions[%d]: actor is required for %s", index, a.Type)
		}
	case AssertCan:
		if a.Actor == "" || a.Verb == "" || a.Allowed == nil {
			return fmt.Errorf("assertions[%d]: actor, verb and allowed are required for can", index)
		}
		switch a.Verb {
		case ActionNominate, ActionScore, ActionWithdraw, ActionRetractScore, ActionReset:
		default:
			return fmt.Errorf("assertions[%d]: unsupported verb %q for can", index, a.Verb)
		}
	case AssertUpcoming:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
