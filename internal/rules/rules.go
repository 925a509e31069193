package rules

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

// Reason is a stable machine-readable denial reason.
type Reason string

const (
	ReasonCandidateUsed      Reason = "candidate_used"
	ReasonUnknownCandidate   Reason = "unknown_candidate"
	ReasonCandidateRetracted Reason = "candidate_retracted"
	ReasonAlreadyNominating  Reason = "already_nominating"
	ReasonAlreadyNominated   Reason = "already_nominated"
	ReasonNoNomination       Reason = "no_nomination"
	ReasonInvalidWeight      Reason = "invalid_weight"
	ReasonNotNominated       Reason = "not_nominated"
	ReasonSelfScore          Reason = "self_score"
	ReasonWeightUsed         Reason = "weight_used"
	ReasonAlreadyScored      Reason = "already_scored"
	ReasonNoScore            Reason = "no_score"
	ReasonNoScores           Reason = "no_scores"
	ReasonNotPrivileged      Reason = "not_privileged"
	ReasonInvalidDate        Reason = "invalid_date"
	ReasonNothingScheduled   Reason = "nothing_scheduled"
	ReasonInvalidCandidate   Reason = "invalid_candidate"
	ReasonCategoryNotAllowed Reason = "category_not_allowed"
	ReasonNotRetracted       Reason = "not_retracted"
)

// Denial explains why an action is not allowed.
type Denial struct {
	Rule      string         `json:"rule"`
	Reason    Reason         `json:"reason"`
	Actor     ir.ActorID     `json:"actor,omitempty"`
	Candidate ir.CandidateID `json:"candidate,omitempty"`
	Message   string         `json:"message"`
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s: %s", d.Rule, d.Message)
}

// Authorizer decides which actors may perform privileged actions.
type Authorizer interface {
	IsPrivileged(actor ir.ActorID) bool
}

func deny(rule string, reason Reason, actor ir.ActorID, c ir.CandidateID, format string, args ...any) *Denial {
	return &Denial{
		Rule:      rule,
		Reason:    reason,
		Actor:     actor,
		Candidate: c,
		Message:   fmt.Sprintf(format, args...),
	}
}

// CanPropose always holds: adding to the registry never conflicts with
// the view's invariants. Category restrictions are group policy, not
// eligibility.
func CanPropose(*view.DerivedView, ir.ActorID) bool { return true }

// CategoryPolicy restricts the categories new candidates may use.
type CategoryPolicy interface {
	AllowsCategory(category string) bool
}

// CheckPropose validates a candidate draft: it must be well formed and, when
// a policy is given, use an allowed category.
func CheckPropose(p CategoryPolicy, actor ir.ActorID, draft ir.CandidateItem) *Denial {
	const rule = "propose"
	if err := draft.Validate(); err != nil {
		return deny(rule, ReasonInvalidCandidate, actor, "", "%v", err)
	}
	if p != nil && !p.AllowsCategory(draft.Category) {
		return deny(rule, ReasonCategoryNotAllowed, actor, "", "category %q is not used by this group", draft.Category)
	}
	return nil
}

// CheckNominate allows a nomination when the candidate is a live, unused
// registry item that nobody has nominated and the actor holds no active
// nomination of their own.
func CheckNominate(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID) *Denial {
	const rule = "nominate"
	if v.IsUsed(c) {
		return deny(rule, ReasonCandidateUsed, actor, c, "candidate %s has already been scheduled", c)
	}
	item, ok := v.Candidates[c]
	if !ok {
		return deny(rule, ReasonUnknownCandidate, actor, c, "candidate %s does not exist", c)
	}
	if item.Retracted() {
		return deny(rule, ReasonCandidateRetracted, actor, c, "candidate %s has been retracted", c)
	}
	if n, ok := v.ActiveNominationOf(actor); ok {
		return deny(rule, ReasonAlreadyNominating, actor, c, "%s already nominated %s", actor, n.CandidateID)
	}
	if n, ok := v.Nominations[c]; ok {
		return deny(rule, ReasonAlreadyNominated, actor, c, "candidate %s is already nominated by %s", c, n.ActorID)
	}
	return nil
}

// CanNominate reports whether CheckNominate allows the nomination.
func CanNominate(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID) bool {
	return CheckNominate(v, actor, c) == nil
}

// CheckWithdrawNomination requires an active nomination.
func CheckWithdrawNomination(v *view.DerivedView, actor ir.ActorID) *Denial {
	if _, ok := v.ActiveNominationOf(actor); !ok {
		return deny("withdraw", ReasonNoNomination, actor, "", "%s has no active nomination", actor)
	}
	return nil
}

// CanWithdrawNomination reports whether the actor holds an active nomination.
func CanWithdrawNomination(v *view.DerivedView, actor ir.ActorID) bool {
	return CheckWithdrawNomination(v, actor) == nil
}

// CheckScore allows a score when the candidate is actively nominated by
// someone else and the actor has not spent this weight nor scored this
// candidate already. Holding a weight-1 and a weight-2 score on two
// different candidates at once is allowed.
func CheckScore(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID, w ir.Weight) *Denial {
	const rule = "score"
	if !w.Valid() {
		return deny(rule, ReasonInvalidWeight, actor, c, "weight %d is not 1 or 2", w)
	}
	if v.IsUsed(c) {
		return deny(rule, ReasonCandidateUsed, actor, c, "candidate %s has already been scheduled", c)
	}
	n, ok := v.Nominations[c]
	if !ok {
		return deny(rule, ReasonNotNominated, actor, c, "candidate %s is not nominated", c)
	}
	if n.ActorID == actor {
		return deny(rule, ReasonSelfScore, actor, c, "%s cannot score their own nomination", actor)
	}
	if slices.Contains(v.UsedWeightsOf(actor), w) {
		return deny(rule, ReasonWeightUsed, actor, c, "%s already spent weight %d", actor, w)
	}
	if _, ok := v.ScoreOf(actor, c); ok {
		return deny(rule, ReasonAlreadyScored, actor, c, "%s already scored %s", actor, c)
	}
	return nil
}

// CanScore reports whether CheckScore allows the score.
func CanScore(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID, w ir.Weight) bool {
	return CheckScore(v, actor, c, w) == nil
}

// CheckRetractScore requires an active score by the actor on the candidate.
func CheckRetractScore(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID) *Denial {
	if _, ok := v.ScoreOf(actor, c); !ok {
		return deny("retract", ReasonNoScore, actor, c, "%s has no score on %s", actor, c)
	}
	return nil
}

// CanRetractScore reports whether the actor holds an active score on c.
func CanRetractScore(v *view.DerivedView, actor ir.ActorID, c ir.CandidateID) bool {
	return CheckRetractScore(v, actor, c) == nil
}

// CheckResetScores requires at least one active score by the actor.
func CheckResetScores(v *view.DerivedView, actor ir.ActorID) *Denial {
	if len(v.ScoresBy(actor)) == 0 {
		return deny("reset", ReasonNoScores, actor, "", "%s has no active scores", actor)
	}
	return nil
}

// CanResetScores reports whether the actor has anything to reset.
func CanResetScores(v *view.DerivedView, actor ir.ActorID) bool {
	return CheckResetScores(v, actor) == nil
}

// CheckPrivileged gates an administrative action. A nil Authorizer grants
// nothing.
func CheckPrivileged(auth Authorizer, rule string, actor ir.ActorID) *Denial {
	if auth == nil || !auth.IsPrivileged(actor) {
		return deny(rule, ReasonNotPrivileged, actor, "", "%s is not a group admin", actor)
	}
	return nil
}

// CheckConfirmSchedule allows a privileged actor to schedule a known,
// unused candidate on a valid date. The time of day is optional.
func CheckConfirmSchedule(v *view.DerivedView, auth Authorizer, actor ir.ActorID, c ir.CandidateID, date, clock string) *Denial {
	const rule = "schedule"
	if d := CheckPrivileged(auth, rule, actor); d != nil {
		return d
	}
	if _, ok := v.Candidates[c]; !ok {
		return deny(rule, ReasonUnknownCandidate, actor, c, "candidate %s does not exist", c)
	}
	if v.IsUsed(c) {
		return deny(rule, ReasonCandidateUsed, actor, c, "candidate %s has already been scheduled", c)
	}
	return checkWhen(rule, actor, c, date, clock)
}

// CanConfirmSchedule reports whether CheckConfirmSchedule allows the scheduling.
func CanConfirmSchedule(v *view.DerivedView, auth Authorizer, actor ir.ActorID, c ir.CandidateID, date string) bool {
	return CheckConfirmSchedule(v, auth, actor, c, date, "") == nil
}

// CheckContinueSchedule allows a privileged actor to schedule the most
// recently scheduled candidate again on a new date.
func CheckContinueSchedule(v *view.DerivedView, auth Authorizer, actor ir.ActorID, date, clock string) *Denial {
	const rule = "continue"
	if d := CheckPrivileged(auth, rule, actor); d != nil {
		return d
	}
	if v.Latest == nil {
		return deny(rule, ReasonNothingScheduled, actor, "", "nothing has been scheduled yet")
	}
	return checkWhen(rule, actor, v.Latest.CandidateID, date, clock)
}

// CheckPurgeCandidate allows a privileged actor to hard-delete a candidate
// that was never scheduled and is not actively nominated.
func CheckPurgeCandidate(v *view.DerivedView, auth Authorizer, actor ir.ActorID, c ir.CandidateID) *Denial {
	const rule = "purge"
	if d := CheckPrivileged(auth, rule, actor); d != nil {
		return d
	}
	if _, ok := v.Candidates[c]; !ok {
		return deny(rule, ReasonUnknownCandidate, actor, c, "candidate %s does not exist", c)
	}
	if v.IsUsed(c) {
		return deny(rule, ReasonCandidateUsed, actor, c, "candidate %s has been scheduled and is kept as history", c)
	}
	if n, ok := v.Nominations[c]; ok {
		return deny(rule, ReasonAlreadyNominated, actor, c, "candidate %s is nominated by %s", c, n.ActorID)
	}
	return nil
}

// CheckRetractCandidate allows a privileged actor to soft delete a known
// candidate that nobody is nominating, or to restore a retracted one.
func CheckRetractCandidate(v *view.DerivedView, auth Authorizer, actor ir.ActorID, c ir.CandidateID, retract bool) *Denial {
	rule := "restore"
	if retract {
		rule = "retract"
	}
	if d := CheckPrivileged(auth, rule, actor); d != nil {
		return d
	}
	item, ok := v.Candidates[c]
	if !ok {
		return deny(rule, ReasonUnknownCandidate, actor, c, "candidate %s does not exist", c)
	}
	if !retract {
		if !item.Retracted() {
			return deny(rule, ReasonNotRetracted, actor, c, "candidate %s is not retracted", c)
		}
		return nil
	}
	if item.Retracted() {
		return deny(rule, ReasonCandidateRetracted, actor, c, "candidate %s is already retracted", c)
	}
	if n, ok := v.Nominations[c]; ok {
		return deny(rule, ReasonAlreadyNominated, actor, c, "candidate %s is nominated by %s", c, n.ActorID)
	}
	return nil
}

func checkWhen(rule string, actor ir.ActorID, c ir.CandidateID, date, clock string) *Denial {
	if _, err := time.Parse(ir.DateLayout, date); err != nil {
		return deny(rule, ReasonInvalidDate, actor, c, "date %q is not YYYY-MM-DD", date)
	}
	if clock != "" {
		if _, err := time.Parse(ir.TimeLayout, clock); err != nil {
			return deny(rule, ReasonInvalidDate, actor, c, "time %q is not HH:MM", clock)
		}
	}
	return nil
}
