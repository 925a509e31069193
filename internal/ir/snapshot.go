package ir

import "time"

// Snapshot is one consistent read of the four stores.
// Every slice is ordered by Seq ascending, the order in which rows were first observed.
type Snapshot struct {
	Candidates  []CandidateItem    `json:"candidates"`
	Nominations []NominationRecord `json:"nominations"`
	Scores      []ScoreRecord      `json:"scores"`
	Schedulings []SchedulingRecord `json:"schedulings"`
}

// Len returns the total number of rows across all stores.
func (s Snapshot) Len() int {
	return len(s.Candidates) + len(s.Nominations) + len(s.Scores) + len(s.Schedulings)
}

// ChangeOp describes what happened to a store.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpDelete ChangeOp = "delete"
	OpUpdate ChangeOp = "update"
)

// Change is a best-effort notification that a store was written.
// It carries no row data; consumers re-read the stores.
type Change struct {
	Log LogKind   `json:"log"`
	Op  ChangeOp  `json:"op"`
	At  time.Time `json:"at"`
}
