package store

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/roach88/shortlist/internal/ir"
)

func TestSnapshot_Empty(t *testing.T) {
	s := createTestStore(t)

	snap, err := s.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if snap.Candidates == nil || snap.Nominations == nil || snap.Scores == nil || snap.Schedulings == nil {
		t.Error("empty logs should be empty slices, not nil")
	}
}

func TestSnapshot_RoundTripsEveryLog(t *testing.T) {
	s := createTestStore(t)

	c := ir.CandidateItem{
		Title: "Dune", Author: "Frank Herbert", Category: "fiction",
		URL: "https://example.com/dune", Description: "Spice.", ProposedBy: "alice",
	}
	wantC := mustAppend(t, s, c).(ir.CandidateItem)
	wantN := mustAppend(t, s, ir.NominationRecord{ActorID: "alice", CandidateID: wantC.ID, Note: "classic"}).(ir.NominationRecord)
	wantS := mustAppend(t, s, ir.ScoreRecord{ActorID: "bob", CandidateID: wantC.ID, Weight: ir.WeightTwo}).(ir.ScoreRecord)
	wantD := mustAppend(t, s, ir.SchedulingRecord{CandidateID: wantC.ID, ScheduledDate: "2026-02-01", ScheduledTime: "19:00"}).(ir.SchedulingRecord)

	snap, err := s.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}

	if len(snap.Candidates) != 1 || snap.Candidates[0] != wantC {
		t.Errorf("candidates = %+v, want [%+v]", snap.Candidates, wantC)
	}
	if len(snap.Nominations) != 1 || snap.Nominations[0] != wantN {
		t.Errorf("nominations = %+v, want [%+v]", snap.Nominations, wantN)
	}
	if len(snap.Scores) != 1 || snap.Scores[0] != wantS {
		t.Errorf("scores = %+v, want [%+v]", snap.Scores, wantS)
	}
	if len(snap.Schedulings) != 1 || snap.Schedulings[0] != wantD {
		t.Errorf("schedulings = %+v, want [%+v]", snap.Schedulings, wantD)
	}
}

func TestSnapshot_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)

	for _, actor := range []ir.ActorID{"zed", "amy", "mo"} {
		mustAppend(t, s, ir.NominationRecord{ActorID: actor, CandidateID: "c-" + ir.CandidateID(actor)})
	}

	snap, err := s.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	var got []string
	for _, n := range snap.Nominations {
		got = append(got, string(n.ActorID))
	}
	if strings.Join(got, ",") != "zed,amy,mo" {
		t.Errorf("order = %v, want insertion order zed,amy,mo", got)
	}
}

func TestSnapshot_SkipsMalformedRows(t *testing.T) {
	var logs bytes.Buffer
	s := createTestStore(t)
	s.logger = slog.New(slog.NewTextHandler(&logs, nil))

	mustAppend(t, s, ir.ScoreRecord{ActorID: "bob", CandidateID: "c1", Weight: ir.WeightOne})
	// Written behind the store's back, as another client might.
	if _, err := s.db.Exec(`INSERT INTO scores (id, actor_id, candidate_id, weight, created_at) VALUES ('bad', 'bob', 'c2', 5, '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO nominations (id, actor_id, candidate_id, created_at) VALUES ('bad-time', 'bob', 'c2', 'yesterday')`); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	snap, err := s.Snapshot(t.Context())
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if len(snap.Scores) != 1 {
		t.Errorf("got %d scores, want 1", len(snap.Scores))
	}
	if len(snap.Nominations) != 0 {
		t.Errorf("got %d nominations, want 0", len(snap.Nominations))
	}
	if !strings.Contains(logs.String(), "skipping malformed row") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestGetCandidate_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetCandidate(t.Context(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCandidate() error = %v, want ErrNotFound", err)
	}
}
