package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/shortlist/internal/ir"
)

// rowScanner is satisfied by *sql.Rows and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// Snapshot reads all four logs in one transaction, so the result reflects a
// single point in the write history.
//
// Rows are ordered by seq ASC, id ASC COLLATE BINARY. Rows that fail
// validation are logged and skipped rather than failing the whole read.
// Returns empty slices (not nil) for empty logs.
func (s *Store) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var snap ir.Snapshot
	if snap.Candidates, err = readLog(ctx, s, tx, ir.LogCandidates, `
		SELECT id, title, author, category, url, description, proposed_by, created_at, retracted_at, seq
		FROM candidates
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scanCandidate); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Nominations, err = readLog(ctx, s, tx, ir.LogNominations, `
		SELECT id, actor_id, candidate_id, note, created_at, seq
		FROM nominations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scanNomination); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Scores, err = readLog(ctx, s, tx, ir.LogScores, `
		SELECT id, actor_id, candidate_id, weight, created_at, seq
		FROM scores
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scanScore); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Schedulings, err = readLog(ctx, s, tx, ir.LogSchedulings, `
		SELECT id, candidate_id, scheduled_date, scheduled_time, created_at, seq
		FROM schedulings
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scanScheduling); err != nil {
		return ir.Snapshot{}, err
	}

	if err := tx.Commit(); err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot: commit: %w", err)
	}
	return snap, nil
}

// GetCandidate returns one registry item by id.
func (s *Store) GetCandidate(ctx context.Context, id ir.CandidateID) (ir.CandidateItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, category, url, description, proposed_by, created_at, retracted_at, seq
		FROM candidates
		WHERE id = ?
	`, string(id))
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.CandidateItem{}, fmt.Errorf("get candidate %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.CandidateItem{}, fmt.Errorf("get candidate %s: %w", id, err)
	}
	return c, nil
}

func readLog[T ir.Record](ctx context.Context, s *Store, tx *sql.Tx, kind ir.LogKind, q string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		rec, err := scan(rows)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			s.logger.Warn("skipping malformed row", "log", kind, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func scanCandidate(row rowScanner) (ir.CandidateItem, error) {
	var (
		c         ir.CandidateItem
		id        string
		proposed  string
		created   string
		retracted sql.NullString
	)
	if err := row.Scan(&id, &c.Title, &c.Author, &c.Category, &c.URL, &c.Description, &proposed, &created, &retracted, &c.Seq); err != nil {
		return ir.CandidateItem{}, err
	}
	c.ID = ir.CandidateID(id)
	c.ProposedBy = ir.ActorID(proposed)

	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return ir.CandidateItem{}, err
	}
	if c.RetractedAt, err = parseNullTime(retracted); err != nil {
		return ir.CandidateItem{}, err
	}
	return c, nil
}

func scanNomination(row rowScanner) (ir.NominationRecord, error) {
	var (
		n                  ir.NominationRecord
		actor, cand, stamp string
	)
	if err := row.Scan(&n.ID, &actor, &cand, &n.Note, &stamp, &n.Seq); err != nil {
		return ir.NominationRecord{}, err
	}
	n.ActorID = ir.ActorID(actor)
	n.CandidateID = ir.CandidateID(cand)

	var err error
	if n.CreatedAt, err = parseTime(stamp); err != nil {
		return ir.NominationRecord{}, err
	}
	return n, nil
}

func scanScore(row rowScanner) (ir.ScoreRecord, error) {
	var (
		sc                 ir.ScoreRecord
		actor, cand, stamp string
		weight             int64
	)
	if err := row.Scan(&sc.ID, &actor, &cand, &weight, &stamp, &sc.Seq); err != nil {
		return ir.ScoreRecord{}, err
	}
	sc.ActorID = ir.ActorID(actor)
	sc.CandidateID = ir.CandidateID(cand)
	sc.Weight = ir.Weight(weight)

	var err error
	if sc.CreatedAt, err = parseTime(stamp); err != nil {
		return ir.ScoreRecord{}, err
	}
	return sc, nil
}

func scanScheduling(row rowScanner) (ir.SchedulingRecord, error) {
	var (
		sc          ir.SchedulingRecord
		cand, stamp string
	)
	if err := row.Scan(&sc.ID, &cand, &sc.ScheduledDate, &sc.ScheduledTime, &stamp, &sc.Seq); err != nil {
		return ir.SchedulingRecord{}, err
	}
	sc.CandidateID = ir.CandidateID(cand)

	var err error
	if sc.CreatedAt, err = parseTime(stamp); err != nil {
		return ir.SchedulingRecord{}, err
	}
	return sc, nil
}
