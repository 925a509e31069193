package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
)

// Append validates rec, assigns its id (unless the caller set one), seq and
// created_at, and inserts it into the matching log. It returns the stored
// record.
func (s *Store) Append(ctx context.Context, rec ir.Record) (ir.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("append: nil record")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("append %s: %w", rec.Kind(), err)
	}

	var (
		stored ir.Record
		err    error
	)
	now := s.now()
	switch r := rec.(type) {
	case ir.CandidateItem:
		stored, err = s.insertCandidate(ctx, r, now)
	case ir.NominationRecord:
		stored, err = s.insertNomination(ctx, r, now)
	case ir.ScoreRecord:
		stored, err = s.insertScore(ctx, r, now)
	case ir.SchedulingRecord:
		stored, err = s.insertScheduling(ctx, r, now)
	default:
		return nil, fmt.Errorf("append: unsupported record %T", rec)
	}
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", rec.Kind(), err)
	}

	s.announce(rec.Kind(), ir.OpInsert)
	return stored, nil
}

func (s *Store) nextID(id string) string {
	if id != "" {
		return id
	}
	return s.ids.Generate()
}

func (s *Store) insertCandidate(ctx context.Context, c ir.CandidateItem, now time.Time) (ir.Record, error) {
	c.ID = ir.CandidateID(s.nextID(string(c.ID)))
	c.CreatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates
		(id, title, author, category, url, description, proposed_by, created_at, retracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(c.ID),
		c.Title,
		c.Author,
		c.Category,
		c.URL,
		c.Description,
		string(c.ProposedBy),
		formatTime(c.CreatedAt),
		formatNullTime(c.RetractedAt),
	)
	if err != nil {
		return nil, err
	}
	if c.Seq, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) insertNomination(ctx context.Context, n ir.NominationRecord, now time.Time) (ir.Record, error) {
	n.ID = s.nextID(n.ID)
	n.CreatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO nominations (id, actor_id, candidate_id, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, string(n.ActorID), string(n.CandidateID), n.Note, formatTime(now))
	if err != nil {
		return nil, err
	}
	if n.Seq, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) insertScore(ctx context.Context, sc ir.ScoreRecord, now time.Time) (ir.Record, error) {
	sc.ID = s.nextID(sc.ID)
	sc.CreatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (id, actor_id, candidate_id, weight, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sc.ID, string(sc.ActorID), string(sc.CandidateID), int64(sc.Weight), formatTime(now))
	if err != nil {
		return nil, err
	}
	if sc.Seq, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) insertScheduling(ctx context.Context, sc ir.SchedulingRecord, now time.Time) (ir.Record, error) {
	sc.ID = s.nextID(sc.ID)
	sc.CreatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO schedulings (id, candidate_id, scheduled_date, scheduled_time, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sc.ID, string(sc.CandidateID), sc.ScheduledDate, sc.ScheduledTime, formatTime(now))
	if err != nil {
		return nil, err
	}
	if sc.Seq, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return sc, nil
}

// DeleteWhere removes every row of kind matching p in one statement and
// returns the number of rows removed. Deleting nothing is not an error.
func (s *Store) DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error) {
	where, args, err := query.Compile(kind, p, query.Question)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}

	// kind is validated by Compile, so the table name is one of the four logs.
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+string(kind)+" WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}

	if n > 0 {
		s.announce(kind, ir.OpDelete)
	}
	return n, nil
}

// SetRetracted soft deletes (retracted=true) or restores a candidate.
// Returns ErrNotFound if no candidate has the id.
func (s *Store) SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error {
	var at *time.Time
	if retracted {
		now := s.now()
		at = &now
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates SET retracted_at = ? WHERE id = ?
	`, formatNullTime(at), string(id))
	if err != nil {
		return fmt.Errorf("set retracted %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set retracted %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set retracted %s: %w", id, ErrNotFound)
	}

	s.announce(ir.LogCandidates, ir.OpUpdate)
	return nil
}
