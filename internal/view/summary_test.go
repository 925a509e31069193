package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shortlist/internal/ir"
)

func TestSummarize(t *testing.T) {
	v := baseLog().schedule("c3", "2026-01-12").view("carol")

	s := Summarize(v)

	assert.Equal(t, ir.ActorID("carol"), s.Viewer)
	assert.Equal(t, []ir.CandidateID{"c3"}, s.Used)
	assert.Len(t, s.Ranked, 2)
	require.NotNil(t, s.Upcoming)
	assert.Equal(t, "2026-01-12", s.Upcoming.ScheduledDate)
}

func TestUsedIDsNeverNil(t *testing.T) {
	assert.NotNil(t, UsedIDs(Aggregate(Inputs{})))
}

func TestFingerprintSensitiveToRanking(t *testing.T) {
	b := baseLog()
	before, err := Fingerprint(b.view("carol"))
	require.NoError(t, err)

	b.score("dave", "c2", ir.WeightTwo)
	after, err := Fingerprint(b.view("carol"))
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestFingerprintIgnoresTitles(t *testing.T) {
	v := baseLog().view("carol")
	renamed := v.Clone()
	for i := range renamed.Ranked {
		renamed.Ranked[i].Title = "renamed"
	}

	a, err := Fingerprint(v)
	require.NoError(t, err)
	b, err := Fingerprint(renamed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
