package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/store"
)

// Snapshot reads all four logs in one REPEATABLE READ transaction.
// Rows that fail validation are logged and skipped.
func (s *Store) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var snap ir.Snapshot
	if snap.Candidates, err = readLog(ctx, s, tx, ir.LogCandidates, `
		SELECT id, title, author, category, url, description, proposed_by, created_at, retracted_at, seq
		FROM candidates ORDER BY seq ASC, id ASC
	`, scanCandidate); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Nominations, err = readLog(ctx, s, tx, ir.LogNominations, `
		SELECT id, actor_id, candidate_id, note, created_at, seq
		FROM nominations ORDER BY seq ASC, id ASC
	`, scanNomination); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Scores, err = readLog(ctx, s, tx, ir.LogScores, `
		SELECT id, actor_id, candidate_id, weight, created_at, seq
		FROM scores ORDER BY seq ASC, id ASC
	`, scanScore); err != nil {
		return ir.Snapshot{}, err
	}
	if snap.Schedulings, err = readLog(ctx, s, tx, ir.LogSchedulings, `
		SELECT id, candidate_id, scheduled_date, scheduled_time, created_at, seq
		FROM schedulings ORDER BY seq ASC, id ASC
	`, scanScheduling); err != nil {
		return ir.Snapshot{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshot: commit: %w", err)
	}
	return snap, nil
}

// GetCandidate returns one registry item by id.
func (s *Store) GetCandidate(ctx context.Context, id ir.CandidateID) (ir.CandidateItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, author, category, url, description, proposed_by, created_at, retracted_at, seq
		FROM candidates WHERE id = $1
	`, string(id))
	c, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ir.CandidateItem{}, fmt.Errorf("get candidate %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return ir.CandidateItem{}, fmt.Errorf("get candidate %s: %w", id, err)
	}
	return c, nil
}

func readLog[T ir.Record](ctx context.Context, s *Store, tx pgx.Tx, kind ir.LogKind, q string, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := tx.Query(ctx, q)
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

func scanCandidate(row pgx.Row) (ir.CandidateItem, error) {
	var (
		c            ir.CandidateItem
		id, proposed string
		retracted    *time.Time
	)
	if err := row.Scan(&id, &c.Title, &c.Author, &c.Category, &c.URL, &c.Description, &proposed, &c.CreatedAt, &retracted, &c.Seq); err != nil {
		return ir.CandidateItem{}, err
	}
	c.ID = ir.CandidateID(id)
	c.ProposedBy = ir.ActorID(proposed)
	c.CreatedAt = c.CreatedAt.UTC()
	if retracted != nil {
		at := retracted.UTC()
		c.RetractedAt = &at
	}
	return c, nil
}

func scanNomination(row pgx.Row) (ir.NominationRecord, error) {
	var (
		n           ir.NominationRecord
		actor, cand string
	)
	if err := row.Scan(&n.ID, &actor, &cand, &n.Note, &n.CreatedAt, &n.Seq); err != nil {
		return ir.NominationRecord{}, err
	}
	n.ActorID = ir.ActorID(actor)
	n.CandidateID = ir.CandidateID(cand)
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

func scanScore(row pgx.Row) (ir.ScoreRecord, error) {
	var (
		sc          ir.ScoreRecord
		actor, cand string
		weight      int32
	)
	if err := row.Scan(&sc.ID, &actor, &cand, &weight, &sc.CreatedAt, &sc.Seq); err != nil {
		return ir.ScoreRecord{}, err
	}
	sc.ActorID = ir.ActorID(actor)
	sc.CandidateID = ir.CandidateID(cand)
	sc.Weight = ir.Weight(weight)
	sc.CreatedAt = sc.CreatedAt.UTC()
	return sc, nil
}

func scanScheduling(row pgx.Row) (ir.SchedulingRecord, error) {
	var (
		sc   ir.SchedulingRecord
		cand string
	)
	if err := row.Scan(&sc.ID, &cand, &sc.ScheduledDate, &sc.ScheduledTime, &sc.CreatedAt, &sc.Seq); err != nil {
		return ir.SchedulingRecord{}, err
	}
	sc.CandidateID = ir.CandidateID(cand)
	sc.CreatedAt = sc.CreatedAt.UTC()
	return sc, nil
}
