package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
	"github.com/roach88/shortlist/internal/rules"
)

func TestProposeHonoursCategoryPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", WithPolicy(testPolicy{categories: []string{"fiction"}}))
	f.load()

	_, err := f.eng.Propose(ctx, "alice", ir.CandidateItem{Title: "Essays", Category: "essay"})
	require.Error(t, err)
	assert.Equal(t, rules.ReasonCategoryNotAllowed, ReasonOf(err))

	_, err = f.eng.Propose(ctx, "alice", ir.CandidateItem{Title: "  "})
	assert.Equal(t, rules.ReasonInvalidCandidate, ReasonOf(err))

	item, err := f.eng.Propose(ctx, "alice", ir.CandidateItem{Title: "Dune", Category: "fiction", Author: "Herbert"})
	require.NoError(t, err)
	assert.Equal(t, "Herbert", f.eng.View().Candidates[item.ID].Author)
	assert.Equal(t, 1, f.faulty.Writes())
}

func TestPrivilegedVerbsRejectNonAdmins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "bob")
	a := f.candidate("Book A")
	f.load()

	_, err := f.eng.ConfirmSchedule(ctx, "bob", a, "2026-01-10", "")
	assert.True(t, IsUnauthorized(err))
	_, err = f.eng.ContinueSchedule(ctx, "bob", "2026-01-10", "")
	assert.True(t, IsUnauthorized(err))
	assert.True(t, IsUnauthorized(f.eng.RetractCandidate(ctx, "bob", a)))
	assert.True(t, IsUnauthorized(f.eng.RestoreCandidate(ctx, "bob", a)))
	assert.True(t, IsUnauthorized(f.eng.PurgeCandidate(ctx, "bob", a)))
	assert.True(t, IsUnauthorized(f.eng.ResetEveryonesScores(ctx, "bob")))
	assert.Equal(t, 0, f.faulty.Writes())
}

func TestWithoutPolicyNobodyIsPrivileged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", WithPolicy(nil))
	a := f.candidate("Book A")
	f.load()

	_, err := f.eng.ConfirmSchedule(ctx, "alice", a, "2026-01-10", "18:30")
	assert.True(t, IsUnauthorized(err))

	_, err = f.eng.Propose(ctx, "alice", ir.CandidateItem{Title: "Any", Category: "anything"})
	assert.NoError(t, err)
}

func TestContinueSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	f.load()

	_, err := f.eng.ContinueSchedule(ctx, "alice", "2026-01-20", "")
	assert.Equal(t, rules.ReasonNothingScheduled, ReasonOf(err))

	first, err := f.eng.ConfirmSchedule(ctx, "alice", a, "2026-01-10", "18:30")
	require.NoError(t, err)
	assert.Equal(t, "18:30", first.ScheduledTime)

	again, err := f.eng.ContinueSchedule(ctx, "alice", "2026-01-24", "")
	require.NoError(t, err)
	assert.Equal(t, a, again.CandidateID)
	assert.Equal(t, "19:00", again.ScheduledTime)
	assert.NotEqual(t, first.ID, again.ID)

	v := f.eng.View()
	require.NotNil(t, v.Latest)
	assert.Equal(t, again.ID, v.Latest.ID)
	require.NotNil(t, v.Upcoming)
	assert.Equal(t, first.ID, v.Upcoming.ID, "earliest future date is upcoming")

	_, err = f.eng.ConfirmSchedule(ctx, "alice", a, "2026-02-01", "")
	assert.Equal(t, rules.ReasonCandidateUsed, ReasonOf(err))
	_, err = f.eng.ContinueSchedule(ctx, "alice", "next week", "")
	assert.Equal(t, rules.ReasonInvalidDate, ReasonOf(err))
}

func TestRetractAndRestoreCandidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	f.load()

	require.NoError(t, f.eng.RetractCandidate(ctx, "alice", a))
	assert.True(t, f.eng.View().Candidates[a].Retracted())
	assert.Equal(t, rules.ReasonCandidateRetracted, ReasonOf(f.eng.Nominate(ctx, "bob", a, "")))

	require.NoError(t, f.eng.RestoreCandidate(ctx, "alice", a))
	assert.False(t, f.eng.View().Candidates[a].Retracted())
	require.NoError(t, f.eng.Nominate(ctx, "bob", a, ""))

	snap, err := f.mem.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Candidates[0].Retracted())
}

func TestPurgeCandidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	b := f.candidate("Book B")
	f.write(ir.NominationRecord{ActorID: "bob", CandidateID: b})
	f.load()

	assert.Equal(t, rules.ReasonAlreadyNominated, ReasonOf(f.eng.PurgeCandidate(ctx, "alice", b)))

	require.NoError(t, f.eng.PurgeCandidate(ctx, "alice", a))
	assert.NotContains(t, f.eng.View().Candidates, a)
	assert.NotContains(t, f.eng.View().Registry, a)
	assert.Equal(t, rules.ReasonUnknownCandidate, ReasonOf(f.eng.PurgeCandidate(ctx, "alice", a)))
}

func TestPurgeOfCandidateDeletedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	f.load()

	// Another client removed it; this engine has not refreshed yet.
	_, err := f.mem.DeleteWhere(ctx, ir.LogCandidates, query.ByID(string(a)))
	require.NoError(t, err)

	err = f.eng.PurgeCandidate(ctx, "alice", a)
	assert.True(t, IsValidation(err))
	assert.Equal(t, rules.ReasonUnknownCandidate, ReasonOf(err))
}

func TestResetEveryonesScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	b := f.candidate("Book B")
	f.write(ir.NominationRecord{ActorID: "xena", CandidateID: a})
	f.write(ir.NominationRecord{ActorID: "yuri", CandidateID: b})
	f.write(ir.ScoreRecord{ActorID: "yuri", CandidateID: a, Weight: ir.WeightTwo})
	f.write(ir.ScoreRecord{ActorID: "alice", CandidateID: b, Weight: ir.WeightOne})
	f.load()

	require.NoError(t, f.eng.ResetEveryonesScores(ctx, "alice"))
	v := f.eng.View()
	assert.Equal(t, 0, v.TotalWeight(a))
	assert.Equal(t, 0, v.TotalWeight(b))
	assert.Empty(t, v.Actor.UsedWeights)
	assert.Equal(t, []ir.CandidateID{a, b}, rankedIDs(v), "ties keep nomination order")

	snap, err := f.mem.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Scores)
	assert.Equal(t, fingerprint(t, f.reaggregate()), fingerprint(t, v))
}

func TestConfirmedVerbStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	a := f.candidate("Book A")
	f.load()
	gen := f.eng.Generation()

	f.faulty.FailNext(nil)
	_, err := f.eng.ConfirmSchedule(ctx, "alice", a, "2026-01-10", "")
	require.Error(t, err)
	assert.True(t, IsStoreFailure(err))
	assert.Equal(t, gen, f.eng.Generation(), "nothing shown for an unconfirmed write")
	assert.False(t, f.eng.View().IsUsed(a))
}
