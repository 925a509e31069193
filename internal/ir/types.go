package ir

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActorID identifies a group member.
type ActorID string

// CandidateID identifies an item in the candidate registry.
type CandidateID string

// Weight is the strength of a score. Only WeightOne and WeightTwo exist.
type Weight int

const (
	WeightOne Weight = 1
	WeightTwo Weight = 2
)

// Weights lists every valid weight in ascending order.
var Weights = []Weight{WeightOne, WeightTwo}

// Valid reports whether w is one of the two allowed weights.
func (w Weight) Valid() bool {
	return w == WeightOne || w == WeightTwo
}

// LogKind names one of the four stores.
type LogKind string

const (
	LogCandidates  LogKind = "candidates"
	LogNominations LogKind = "nominations"
	LogScores      LogKind = "scores"
	LogSchedulings LogKind = "schedulings"
)

// LogKinds lists the stores in a fixed order.
var LogKinds = []LogKind{LogCandidates, LogNominations, LogScores, LogSchedulings}

// Valid reports whether k names a known store.
func (k LogKind) Valid() bool {
	switch k {
	case LogCandidates, LogNominations, LogScores, LogSchedulings:
		return true
	}
	return false
}

// DateLayout is the wire format of SchedulingRecord.ScheduledDate.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format of SchedulingRecord.ScheduledTime.
const TimeLayout = "15:04"

// Record is implemented by the four log row types.
//
// This is a sealed interface: the unexported marker keeps the set closed so
// type switches over Record are exhaustive.
type Record interface {
	Kind() LogKind
	Validate() error
	record()
}

// ErrMalformed is wrapped by every Validate failure.
var ErrMalformed = errors.New("malformed record")

func malformed(kind LogKind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, kind, fmt.Sprintf(format, args...))
}

// CandidateItem is an entry in the candidate registry.
// RetractedAt marks a soft delete; nil means the candidate is live.
type CandidateItem struct {
	ID          CandidateID `json:"id"`
	Title       string      `json:"title"`
	Author      string      `json:"author,omitempty"`
	Category    string      `json:"category,omitempty"`
	URL         string      `json:"url,omitempty"`
	Description string      `json:"description,omitempty"`
	ProposedBy  ActorID     `json:"proposed_by"`
	CreatedAt   time.Time   `json:"created_at"`
	RetractedAt *time.Time  `json:"retracted_at,omitempty"`
	Seq         int64       `json:"seq"`
}

func (CandidateItem) Kind() LogKind { return LogCandidates }
func (CandidateItem) record()       {}

// Retracted reports whether the candidate is soft deleted.
func (c CandidateItem) Retracted() bool { return c.RetractedAt != nil }

// Validate checks required fields. The ID may be empty before the store assigns one.
func (c CandidateItem) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return malformed(LogCandidates, "title is required")
	}
	if c.ProposedBy == "" {
		return malformed(LogCandidates, "proposed_by is required")
	}
	return nil
}

// NominationRecord claims a candidate for the current cycle.
type NominationRecord struct {
	ID          string      `json:"id"`
	ActorID     ActorID     `json:"actor_id"`
	CandidateID CandidateID `json:"candidate_id"`
	Note        string      `json:"note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Seq         int64       `json:"seq"`
}

func (NominationRecord) Kind() LogKind { return LogNominations }
func (NominationRecord) record()       {}

func (n NominationRecord) Validate() error {
	if n.ActorID == "" {
		return malformed(LogNominations, "actor_id is required")
	}
	if n.CandidateID == "" {
		return malformed(LogNominations, "candidate_id is required")
	}
	return nil
}

// ScoreRecord is a weighted preference cast on a nominated candidate.
type ScoreRecord struct {
	ID          string      `json:"id"`
	ActorID     ActorID     `json:"actor_id"`
	CandidateID CandidateID `json:"candidate_id"`
	Weight      Weight      `json:"weight"`
	CreatedAt   time.Time   `json:"created_at"`
	Seq         int64       `json:"seq"`
}

func (ScoreRecord) Kind() LogKind { return LogScores }
func (ScoreRecord) record()       {}

func (s ScoreRecord) Validate() error {
	if s.ActorID == "" {
		return malformed(LogScores, "actor_id is required")
	}
	if s.CandidateID == "" {
		return malformed(LogScores, "candidate_id is required")
	}
	if !s.Weight.Valid() {
		return malformed(LogScores, "weight %d is not 1 or 2", s.Weight)
	}
	return nil
}

// SchedulingRecord commits a candidate to a date. It permanently retires the candidate.
type SchedulingRecord struct {
	ID            string      `json:"id"`
	CandidateID   CandidateID `json:"candidate_id"`
	ScheduledDate string      `json:"scheduled_date"`
	ScheduledTime string      `json:"scheduled_time,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	Seq           int64       `json:"seq"`
}

func (SchedulingRecord) Kind() LogKind { return LogSchedulings }
func (SchedulingRecord) record()       {}

func (s SchedulingRecord) Validate() error {
	if s.CandidateID == "" {
		return malformed(LogSchedulings, "candidate_id is required")
	}
	if _, err := time.Parse(DateLayout, s.ScheduledDate); err != nil {
		return malformed(LogSchedulings, "scheduled_date %q is not YYYY-MM-DD", s.ScheduledDate)
	}
	if s.ScheduledTime != "" {
		if _, err := time.Parse(TimeLayout, s.ScheduledTime); err != nil {
			return malformed(LogSchedulings, "scheduled_time %q is not HH:MM", s.ScheduledTime)
		}
	}
	return nil
}
