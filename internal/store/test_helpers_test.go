package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/shortlist/internal/ir"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestStore opens a store in a temp dir with deterministic ids and a
// clock that advances one second per call.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	tick := 0
	s, err := Open(path,
		WithIDGenerator(NewSequenceGenerator("row")),
		WithNow(func() time.Time {
			tick++
			return testEpoch.Add(time.Duration(tick) * time.Second)
		}),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestCandidate(title string) ir.CandidateItem {
	return ir.CandidateItem{Title: title, ProposedBy: "alice"}
}

func mustAppend(t *testing.T, s *Store, rec ir.Record) ir.Record {
	t.Helper()
	stored, err := s.Append(t.Context(), rec)
	if err != nil {
		t.Fatalf("Append(%T) failed: %v", rec, err)
	}
	return stored
}
