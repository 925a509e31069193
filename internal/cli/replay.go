package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

// ReplayResult holds the replay result.
type ReplayResult struct {
	Rows                map[ir.LogKind]int `json:"rows"`
	SnapshotFingerprint string             `json:"snapshot_fingerprint"`
	ViewFingerprint     string             `json:"view_fingerprint"`
	Deterministic       bool               `json:"deterministic"`
	Violations          []view.Violation   `json:"violations,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Re-aggregate the logs and verify determinism",
		Long: `Read every log once, aggregate the snapshot twice and compare view
fingerprints. The raw logs and the derived view are also audited for
rule violations that concurrent writers can leave behind.

Exit codes:
  0 - Deterministic and consistent
  1 - Fingerprints differ or violations were found
  2 - Command error (database not found, etc.)

Examples:
  shortlist replay --db ./shortlist.db
  shortlist replay --db ./shortlist.db --actor alice --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, closer, err := openStore(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closer()

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read logs", err)
	}

	in := view.Inputs{
		Snapshot: snap,
		Viewer:   ir.ActorID(opts.Actor),
		Today:    time.Now().UTC().Format(ir.DateLayout),
	}
	first, err := view.Fingerprint(view.Aggregate(in))
	if err != nil {
		return fmt.Errorf("fingerprint first pass: %w", err)
	}
	v := view.Aggregate(in)
	second, err := view.Fingerprint(v)
	if err != nil {
		return fmt.Errorf("fingerprint second pass: %w", err)
	}
	snapFP, err := ir.Fingerprint(ir.DomainSnapshot, snapshotIDs(snap))
	if err != nil {
		return fmt.Errorf("fingerprint snapshot: %w", err)
	}

	result := ReplayResult{
		Rows: map[ir.LogKind]int{
			ir.LogCandidates:  len(snap.Candidates),
			ir.LogNominations: len(snap.Nominations),
			ir.LogScores:      len(snap.Scores),
			ir.LogSchedulings: len(snap.Schedulings),
		},
		SnapshotFingerprint: snapFP,
		ViewFingerprint:     second,
		Deterministic:       first == second,
		Violations:          append(view.Audit(snap), view.Check(v)...),
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		writeReplay(f, result)
	}

	switch {
	case !result.Deterministic:
		return reportedExitError(ExitFailure, "aggregation is not deterministic")
	case len(result.Violations) > 0:
		return reportedExitError(ExitFailure, fmt.Sprintf("%d violation(s) found", len(result.Violations)))
	}
	return nil
}

func writeReplay(f *OutputFormatter, r ReplayResult) {
	w := f.Writer
	for _, k := range ir.LogKinds {
		fmt.Fprintf(w, "%-12s %d rows\n", k, r.Rows[k])
	}
	f.VerboseLog("snapshot %s", r.SnapshotFingerprint)
	fmt.Fprintf(w, "view fingerprint: %s\n", r.ViewFingerprint)
	if r.Deterministic {
		fmt.Fprintln(w, "✓ deterministic")
	} else {
		fmt.Fprintln(w, "✗ fingerprints differ between passes")
	}
	if len(r.Violations) == 0 {
		fmt.Fprintln(w, "✓ no violations")
		return
	}
	fmt.Fprintf(w, "✗ %d violation(s):\n", len(r.Violations))
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
}

// snapshotIDs lists the row ids of every log in snapshot order.
func snapshotIDs(snap ir.Snapshot) map[string]any {
	ids := func(n int, at func(int) string) []any {
		out := make([]any, n)
		for i := range n {
			out[i] = at(i)
		}
		return out
	}
	return map[string]any{
		string(ir.LogCandidates):  ids(len(snap.Candidates), func(i int) string { return string(snap.Candidates[i].ID) }),
		string(ir.LogNominations): ids(len(snap.Nominations), func(i int) string { return snap.Nominations[i].ID }),
		string(ir.LogScores):      ids(len(snap.Scores), func(i int) string { return snap.Scores[i].ID }),
		string(ir.LogSchedulings): ids(len(snap.Schedulings), func(i int) string { return snap.Schedulings[i].ID }),
	}
}
