package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/query"
	"github.com/roach88/shortlist/internal/store"
)

// Append validates rec, assigns its id (unless the caller set one), seq and
// created_at, and inserts it into the matching log.
func (s *Store) Append(ctx context.Context, rec ir.Record) (ir.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("append: nil record")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("append %s: %w", rec.Kind(), err)
	}

	now := s.now()
	var stored ir.Record
	err := s.inTx(ctx, rec.Kind(), ir.OpInsert, func(tx pgx.Tx) (bool, error) {
		var err error
		stored, err = s.insert(ctx, tx, rec, now)
		return err == nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", rec.Kind(), err)
	}
	return stored, nil
}

func (s *Store) nextID(id string) string {
	if id != "" {
		return id
	}
	return s.ids.Generate()
}

func (s *Store) insert(ctx context.Context, tx pgx.Tx, rec ir.Record, now time.Time) (ir.Record, error) {
	switch r := rec.(type) {
	case ir.CandidateItem:
		r.ID = ir.CandidateID(s.nextID(string(r.ID)))
		r.CreatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO candidates
			(id, title, author, category, url, description, proposed_by, created_at, retracted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING seq
		`, string(r.ID), r.Title, r.Author, r.Category, r.URL, r.Description, string(r.ProposedBy), r.CreatedAt, r.RetractedAt,
		).Scan(&r.Seq)
		return r, err
	case ir.NominationRecord:
		r.ID = s.nextID(r.ID)
		r.CreatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO nominations (id, actor_id, candidate_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING seq
		`, r.ID, string(r.ActorID), string(r.CandidateID), r.Note, r.CreatedAt).Scan(&r.Seq)
		return r, err
	case ir.ScoreRecord:
		r.ID = s.nextID(r.ID)
		r.CreatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO scores (id, actor_id, candidate_id, weight, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING seq
		`, r.ID, string(r.ActorID), string(r.CandidateID), int32(r.Weight), r.CreatedAt).Scan(&r.Seq)
		return r, err
	case ir.SchedulingRecord:
		r.ID = s.nextID(r.ID)
		r.CreatedAt = now
		err := tx.QueryRow(ctx, `
			INSERT INTO schedulings (id, candidate_id, scheduled_date, scheduled_time, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING seq
		`, r.ID, string(r.CandidateID), r.ScheduledDate, r.ScheduledTime, r.CreatedAt).Scan(&r.Seq)
		return r, err
	default:
		return nil, fmt.Errorf("unsupported record %T", rec)
	}
}

// DeleteWhere removes every row of kind matching p in one transaction and
// returns the number of rows removed.
func (s *Store) DeleteWhere(ctx context.Context, kind ir.LogKind, p query.Predicate) (int64, error) {
	where, args, err := query.Compile(kind, p, query.Dollar)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}

	var n int64
	err = s.inTx(ctx, kind, ir.OpDelete, func(tx pgx.Tx) (bool, error) {
		// kind is validated by Compile, so the table name is one of the four logs.
		tag, err := tx.Exec(ctx, "DELETE FROM "+string(kind)+" WHERE "+where, args...)
		if err != nil {
			return false, err
		}
		n = tag.RowsAffected()
		return n > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}
	return n, nil
}

// SetRetracted soft deletes or restores a candidate.
// Returns store.ErrNotFound if no candidate has the id.
func (s *Store) SetRetracted(ctx context.Context, id ir.CandidateID, retracted bool) error {
	var at *time.Time
	if retracted {
		now := s.now()
		at = &now
	}

	err := s.inTx(ctx, ir.LogCandidates, ir.OpUpdate, func(tx pgx.Tx) (bool, error) {
		tag, err := tx.Exec(ctx, `UPDATE candidates SET retracted_at = $1 WHERE id = $2`, at, string(id))
		if err != nil {
			return false, err
		}
		if tag.RowsAffected() == 0 {
			return false, store.ErrNotFound
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("set retracted %s: %w", id, err)
	}
	return nil
}
