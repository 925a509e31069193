package view

import (
	"fmt"
	"time"

	"github.com/roach88/shortlist/internal/ir"
)

var t0 = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

// logBuilder appends rows to a snapshot with increasing seq values,
// the way a store would.
type logBuilder struct {
	snap ir.Snapshot
	seq  int64
}

func newLog() *logBuilder { return &logBuilder{} }

func (b *logBuilder) next() (string, int64, time.Time) {
	b.seq++
	return fmt.Sprintf("row-%03d", b.seq), b.seq, t0.Add(time.Duration(b.seq) * time.Minute)
}

func (b *logBuilder) candidate(id, category string) *logBuilder {
	_, seq, at := b.next()
	b.snap.Candidates = append(b.snap.Candidates, ir.CandidateItem{
		ID: ir.CandidateID(id), Title: "Title " + id, Category: category,
		ProposedBy: "alice", CreatedAt: at, Seq: seq,
	})
	return b
}

func (b *logBuilder) retracted(id, category string) *logBuilder {
	b.candidate(id, category)
	at := t0
	b.snap.Candidates[len(b.snap.Candidates)-1].RetractedAt = &at
	return b
}

func (b *logBuilder) nominate(actor, candidate string) *logBuilder {
	id, seq, at := b.next()
	b.snap.Nominations = append(b.snap.Nominations, ir.NominationRecord{
		ID: id, ActorID: ir.ActorID(actor), CandidateID: ir.CandidateID(candidate), CreatedAt: at, Seq: seq,
	})
	return b
}

func (b *logBuilder) score(actor, candidate string, w ir.Weight) *logBuilder {
	id, seq, at := b.next()
	b.snap.Scores = append(b.snap.Scores, ir.ScoreRecord{
		ID: id, ActorID: ir.ActorID(actor), CandidateID: ir.CandidateID(candidate), Weight: w, CreatedAt: at, Seq: seq,
	})
	return b
}

func (b *logBuilder) schedule(candidate, date string) *logBuilder {
	id, seq, at := b.next()
	b.snap.Schedulings = append(b.snap.Schedulings, ir.SchedulingRecord{
		ID: id, CandidateID: ir.CandidateID(candidate), ScheduledDate: date, CreatedAt: at, Seq: seq,
	})
	return b
}

func (b *logBuilder) view(viewer string) *DerivedView {
	return Aggregate(Inputs{Snapshot: b.snap, Viewer: ir.ActorID(viewer), Today: "2026-01-10"})
}

func rankedIDs(v *DerivedView) []ir.CandidateID {
	ids := make([]ir.CandidateID, len(v.Ranked))
	for i, r := range v.Ranked {
		ids[i] = r.CandidateID
	}
	return ids
}
