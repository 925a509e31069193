package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/shortlist/internal/engine"
	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/policy"
	"github.com/roach88/shortlist/internal/store"
	"github.com/roach88/shortlist/internal/testutil"
	"github.com/roach88/shortlist/internal/view"
)

// settleTimeout bounds how long a step may take to reconcile.
const settleTimeout = 5 * time.Second

// Harness is the scenario execution engine.
// It runs a real engine over an in-memory store with a deterministic clock.
type Harness struct {
	store   *store.Store
	faulty  *testutil.FaultyStore
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
	aliases map[string]ir.CandidateID
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and seed the registry
// 2. Load the engine and start its reconciliation loop
// 3. Execute each step and wait for the engine to settle
// 4. Re-aggregate from the store and compare with the live view
// 5. Evaluate assertions against the re-aggregated view
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	epoch := testutil.DefaultEpoch
	if scenario.Today != "" {
		day, err := time.Parse(ir.DateLayout, scenario.Today)
		if err != nil {
			return nil, fmt.Errorf("invalid today %q: %w", scenario.Today, err)
		}
		epoch = day.Add(12 * time.Hour)
	}
	clock := testutil.NewDeterministicClock(epoch, time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(":memory:",
		store.WithNow(clock.Now),
		store.WithIDGenerator(store.NewSequenceGenerator("id")),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		faulty:  testutil.NewFaultyStore(st),
		clock:   clock,
		aliases: make(map[string]ir.CandidateID),
		logger:  logger,
	}
	if err := h.seed(ctx, scenario.Candidates); err != nil {
		return nil, fmt.Errorf("failed to seed candidates: %w", err)
	}

	h.engine = engine.New(h.faulty, ir.ActorID(scenario.Viewer),
		engine.WithLogger(logger),
		engine.WithPolicy(scenario.Group.policy()),
		engine.WithNow(clock.Now),
	)
	if err := h.engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load view: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.engine.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		if err := h.settle(ctx); err != nil {
			return nil, fmt.Errorf("step %d (%s): settle: %w", i+1, step.Action, err)
		}
		ev.Ranking = rankingOf(h.engine.View())
		result.AddTrace(ev)
		if msg := checkOutcome(step, ev); msg != "" {
			result.AddError(msg)
		}
	}

	live := h.engine.View()
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final snapshot: %w", err)
	}
	final := view.Aggregate(view.Inputs{Snapshot: snap, Viewer: live.Viewer, Today: live.Today})
	if !sameView(live, final) {
		result.AddError("live view diverged from a fresh aggregation of the store")
	}
	result.Final = view.Canonical(final)

	for _, msg := range EvaluateAssertions(final, scenario.Assertions, h.resolve) {
		result.AddError(msg)
	}
	return result, nil
}

// seed writes the registry straight to the store, bypassing the engine.
func (h *Harness) seed(ctx context.Context, candidates []Candidate) error {
	for _, c := range candidates {
		proposer := c.ProposedBy
		if proposer == "" {
			proposer = "seed"
		}
		_, err := h.store.Append(ctx, ir.CandidateItem{
			ID:         ir.CandidateID(c.ID),
			Title:      c.Title,
			Author:     c.Author,
			Category:   c.Category,
			ProposedBy: ir.ActorID(proposer),
		})
		if err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		if c.Retracted {
			if err := h.store.SetRetracted(ctx, ir.CandidateID(c.ID), true); err != nil {
				return fmt.Errorf("retract %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// execute runs one step. Engine errors become the step's outcome; only
// errors outside the engine's error model are returned.
func (h *Harness) execute(ctx context.Context, n int, st Step) (TraceEvent, error) {
	ev := TraceEvent{Step: n, Action: st.Action, Actor: st.Actor, Args: map[string]any{}}
	actor := ir.ActorID(st.Actor)
	c := h.resolve(st.Candidate)
	if st.Candidate != "" {
		ev.Args["candidate"] = string(c)
	}

	var err error
	switch st.Action {
	case ActionPropose:
		ev.Args["title"] = st.Title
		if st.Category != "" {
			ev.Args["category"] = st.Category
		}
		var item ir.CandidateItem
		item, err = h.engine.Propose(ctx, actor, ir.CandidateItem{Title: st.Title, Category: st.Category})
		if err == nil {
			ev.Args["id"] = string(item.ID)
			if st.As != "" {
				h.aliases[st.As] = item.ID
			}
		}
	case ActionNominate:
		if st.Note != "" {
			ev.Args["note"] = st.Note
		}
		err = h.engine.Nominate(ctx, actor, c, st.Note)
	case ActionWithdraw:
		err = h.engine.WithdrawNomination(ctx, actor)
	case ActionScore:
		ev.Args["weight"] = st.Weight
		err = h.engine.Score(ctx, actor, c, ir.Weight(st.Weight))
	case ActionRetractScore:
		err = h.engine.RetractScore(ctx, actor, c)
	case ActionReset:
		err = h.engine.ResetAllScores(ctx, actor)
	case ActionResetEveryone:
		err = h.engine.ResetEveryonesScores(ctx, actor)
	case ActionSchedule:
		addWhen(ev.Args, st)
		_, err = h.engine.ConfirmSchedule(ctx, actor, c, st.Date, st.Time)
	case ActionContinue:
		addWhen(ev.Args, st)
		_, err = h.engine.ContinueSchedule(ctx, actor, st.Date, st.Time)
	case ActionRetractCandidate:
		err = h.engine.RetractCandidate(ctx, actor, c)
	case ActionRestoreCandidate:
		err = h.engine.RestoreCandidate(ctx, actor, c)
	case ActionPurge:
		err = h.engine.PurgeCandidate(ctx, actor, c)
	case ActionFailNextWrite:
		h.faulty.FailNext(nil)
		ev.Outcome = OutcomeArmed
		return ev, nil
	default:
		return ev, fmt.Errorf("unknown action %q", st.Action)
	}

	switch {
	case err == nil:
		ev.Outcome = OutcomeOK
	case engine.IsValidation(err):
		ev.Outcome = OutcomeDenied
		ev.Reason = string(engine.ReasonOf(err))
	case engine.IsStoreFailure(err):
		ev.Outcome = OutcomeStoreFailure
	default:
		return ev, err
	}
	return ev, nil
}

func addWhen(args map[string]any, st Step) {
	args["date"] = st.Date
	if st.Time != "" {
		args["time"] = st.Time
	}
}

func (h *Harness) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return h.engine.Settle(ctx)
}

// resolve maps a proposal alias to its stored id. Anything else is taken
// as a literal candidate id.
func (h *Harness) resolve(name string) ir.CandidateID {
	if id, ok := h.aliases[name]; ok {
		return id
	}
	return ir.CandidateID(name)
}

func checkOutcome(st Step, ev TraceEvent) string {
	if st.Action == ActionFailNextWrite {
		return ""
	}
	want := st.Expect
	if want == "" {
		want = OutcomeOK
	}
	if ev.Outcome != want {
		msg := fmt.Sprintf("step %d (%s): expected %s, got %s", ev.Step, st.Action, want, ev.Outcome)
		if ev.Reason != "" {
			msg += " (" + ev.Reason + ")"
		}
		return msg
	}
	if st.Reason != "" && ev.Reason != st.Reason {
		return fmt.Sprintf("step %d (%s): expected reason %s, got %s", ev.Step, st.Action, st.Reason, ev.Reason)
	}
	return ""
}

func rankingOf(v *view.DerivedView) []string {
	out := make([]string, len(v.Ranked))
	for i, r := range v.Ranked {
		out[i] = string(r.CandidateID)
	}
	return out
}

func sameView(a, b *view.DerivedView) bool {
	fa, errA := view.Fingerprint(a)
	fb, errB := view.Fingerprint(b)
	return errA == nil && errB == nil && fa == fb
}

func (g Group) policy() *policy.Policy {
	p := policy.Open()
	for _, a := range g.Admins {
		p.Admins = append(p.Admins, ir.ActorID(a))
	}
	p.Categories = slices.Clone(g.Categories)
	p.DefaultTime = g.DefaultTime
	return p
}
