package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
)

func TestAggregateEmptySnapshot(t *testing.T) {
	v := Aggregate(Inputs{Viewer: "alice"})

	assert.Empty(t, v.Used)
	assert.Empty(t, v.Nominations)
	assert.Empty(t, v.Ranked)
	assert.False(t, v.Actor.HasNomination())
	assert.Empty(t, v.Actor.UsedWeights)
	assert.Nil(t, v.Upcoming)
	assert.Nil(t, v.Latest)
	assert.Empty(t, Check(v))
}

func TestAggregateUsedIsExactlyTheScheduledSet(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").candidate("c3", "").
		nominate("alice", "c1").
		nominate("bob", "c2").
		score("carol", "c1", ir.WeightTwo).
		score("carol", "c2", ir.WeightOne).
		schedule("c1", "2026-01-08").
		schedule("c3", "2026-01-20")

	v := b.view("carol")

	assert.Equal(t, map[ir.CandidateID]bool{"c1": true, "c3": true}, v.Used)
	assert.Equal(t, []ir.CandidateID{"c2"}, rankedIDs(v))
	assert.NotContains(t, v.Nominations, ir.CandidateID("c1"))
	assert.NotContains(t, v.Scores, ir.CandidateID("c1"))
	// The weight-2 score on a retired candidate is inert, so carol may spend it again.
	assert.Equal(t, []ir.Weight{ir.WeightOne}, v.Actor.UsedWeights)
	assert.Empty(t, Check(v))
}

func TestAggregateRankingIsStableOnTies(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").candidate("c3", "").candidate("c4", "").
		nominate("alice", "c1").
		nominate("bob", "c2").
		nominate("carol", "c3").
		nominate("dave", "c4").
		score("erin", "c2", ir.WeightTwo).
		score("erin", "c4", ir.WeightOne).
		score("frank", "c4", ir.WeightOne)

	v := b.view("erin")

	// c2 and c4 tie on 2; c2 was nominated first. c1 and c3 have nothing and keep their order.
	assert.Equal(t, []ir.CandidateID{"c2", "c4", "c1", "c3"}, rankedIDs(v))
	assert.Equal(t, 2, v.Ranked[0].TotalWeight)
	assert.Equal(t, Breakdown{Ones: 0, Twos: 1}, v.Ranked[0].Breakdown)
	assert.Equal(t, Breakdown{Ones: 2, Twos: 0}, v.Ranked[1].Breakdown)
	assert.Equal(t, 0, v.Ranked[3].TotalWeight)
	assert.Empty(t, Check(v))
}

func TestAggregateLastNominationPerActorWins(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").
		nominate("alice", "c1").
		nominate("alice", "c2")

	v := b.view("alice")

	assert.Equal(t, []ir.CandidateID{"c2"}, v.NominationOrder)
	assert.Equal(t, ir.CandidateID("c2"), v.Actor.ActiveCandidate)
	assert.NotEmpty(t, Audit(b.snap))
}

func TestAggregateNominationOnRetiredCandidateDoesNotShadow(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").
		nominate("alice", "c2").
		nominate("alice", "c1").
		schedule("c1", "2026-01-08")

	v := b.view("alice")

	// The later nomination is inert history, so the earlier one stays active.
	assert.Equal(t, ir.CandidateID("c2"), v.Actor.ActiveCandidate)
}

func TestAggregateFirstNominatorKeepsCandidate(t *testing.T) {
	b := newLog().
		candidate("c1", "").
		nominate("alice", "c1").
		nominate("bob", "c1")

	v := b.view("bob")

	require.Len(t, v.Ranked, 1)
	assert.Equal(t, ir.ActorID("alice"), v.Ranked[0].Nominator)
	assert.False(t, v.Actor.HasNomination())
}

func TestAggregateActorState(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").candidate("c3", "").
		nominate("alice", "c1").
		nominate("bob", "c2").
		nominate("carol", "c3").
		score("bob", "c1", ir.WeightTwo).
		score("bob", "c3", ir.WeightOne)

	v := b.view("bob")

	assert.Equal(t, ir.CandidateID("c2"), v.Actor.ActiveCandidate)
	assert.Equal(t, []ir.Weight{ir.WeightOne, ir.WeightTwo}, v.Actor.UsedWeights)
	assert.Equal(t, map[ir.CandidateID]ir.Weight{"c1": ir.WeightTwo, "c3": ir.WeightOne}, v.Actor.Scored)
	assert.True(t, v.Actor.WeightUsed(ir.WeightTwo))
}

func TestAggregateScoresSurviveWithdrawnNomination(t *testing.T) {
	b := newLog().
		candidate("c1", "").
		score("bob", "c1", ir.WeightOne)

	v := b.view("bob")

	assert.Empty(t, v.Ranked)
	assert.Equal(t, 1, v.TotalWeight("c1"))
	assert.Equal(t, []ir.Weight{ir.WeightOne}, v.Actor.UsedWeights)
}

func TestAggregateUpcomingAndLatest(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").candidate("c3", "").
		schedule("c1", "2026-01-08").
		schedule("c3", "2026-02-01").
		schedule("c2", "2026-01-10")

	v := b.view("alice")

	require.NotNil(t, v.Upcoming)
	assert.Equal(t, ir.CandidateID("c2"), v.Upcoming.CandidateID, "today counts as upcoming")
	require.NotNil(t, v.Latest)
	assert.Equal(t, ir.CandidateID("c2"), v.Latest.CandidateID)

	noToday := Aggregate(Inputs{Snapshot: b.snap, Viewer: "alice"})
	assert.Nil(t, noToday.Upcoming)
}

func TestAggregateIsDeterministic(t *testing.T) {
	b := newLog().
		candidate("c1", "").candidate("c2", "").candidate("c3", "").
		nominate("alice", "c1").nominate("bob", "c2").nominate("carol", "c3").
		score("dave", "c3", ir.WeightOne).score("erin", "c1", ir.WeightOne)

	first := b.view("dave")
	second := b.view("dave")

	assert.True(t, first.Equal(second))
	fp1, err := Fingerprint(first)
	require.NoError(t, err)
	fp2, err := Fingerprint(second)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestBrowseAndCategories(t *testing.T) {
	b := newLog().
		candidate("c1", "fiction").
		candidate("c2", "essay").
		candidate("c3", "fiction").
		retracted("c4", "poetry").
		candidate("c5", "").
		schedule("c3", "2026-01-01")

	v := b.view("alice")

	ids := func(items []ir.CandidateItem) []ir.CandidateID {
		out := []ir.CandidateID{}
		for _, c := range items {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []ir.CandidateID{"c1", "c2", "c5"}, ids(Browse(v, "")))
	assert.Equal(t, []ir.CandidateID{"c1"}, ids(Browse(v, "fiction")))
	assert.Empty(t, Browse(v, "poetry"))
	assert.Equal(t, []string{"essay", "fiction"}, Categories(v))
}
