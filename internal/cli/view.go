package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Browse   bool
	Category string
}

// BrowseResult is the JSON payload of view --browse.
type BrowseResult struct {
	Categories []string           `json:"categories"`
	Candidates []ir.CandidateItem `json:"candidates"`
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the ranking and your own standing",
		Long: `Show the current ranking, the next scheduled item and, with --actor,
your own nomination and spent weights.

With --browse, list the candidates that can still be nominated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Browse, "browse", false, "list candidates that can still be nominated")
	cmd.Flags().StringVar(&opts.Category, "category", "", "only browse this category")
	return cmd
}

func runView(cmd *cobra.Command, opts *ViewOptions) error {
	s, err := openSession(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	v := s.engine.View()
	w := cmd.OutOrStdout()
	f := &OutputFormatter{Format: opts.Format, Writer: w}

	if opts.Browse {
		items := view.Browse(v, opts.Category)
		if opts.Format == "json" {
			return f.Success(BrowseResult{Categories: view.Categories(v), Candidates: items})
		}
		writeBrowse(w, items)
		return nil
	}

	if opts.Format == "json" {
		return f.Success(view.Summarize(v))
	}
	writeView(w, v)
	return nil
}

func writeView(w io.Writer, v *view.DerivedView) {
	if len(v.Ranked) == 0 {
		fmt.Fprintln(w, "No nominations yet.")
	} else {
		fmt.Fprintln(w, "Ranking:")
		for i, r := range v.Ranked {
			fmt.Fprintf(w, "  %d. %s [%s] by %s: %d (%dx1, %dx2)\n",
				i+1, r.Title, r.CandidateID, r.Nominator, r.TotalWeight, r.Breakdown.Ones, r.Breakdown.Twos)
			if r.Note != "" {
				fmt.Fprintf(w, "     %q\n", r.Note)
			}
		}
	}

	if v.Viewer != "" {
		if v.Actor.HasNomination() {
			fmt.Fprintf(w, "Your nomination: %s\n", v.Actor.ActiveCandidate)
		} else {
			fmt.Fprintln(w, "Your nomination: none")
		}
		fmt.Fprintf(w, "Weights used: %s\n", formatWeights(v.Actor.UsedWeights))
	}

	if u := v.Upcoming; u != nil {
		when := u.ScheduledDate
		if u.ScheduledTime != "" {
			when += " " + u.ScheduledTime
		}
		fmt.Fprintf(w, "Next up: %s on %s\n", titleOf(v, u.CandidateID), when)
	}
}

func writeBrowse(w io.Writer, items []ir.CandidateItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to browse.")
		return
	}
	for _, c := range items {
		line := fmt.Sprintf("%s [%s]", c.Title, c.ID)
		if c.Author != "" {
			line += " by " + c.Author
		}
		if c.Category != "" {
			line += " (" + c.Category + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func formatWeights(ws []ir.Weight) string {
	if len(ws) == 0 {
		return "none"
	}
	parts := make([]string, len(ws))
	for i, wt := range ws {
		parts[i] = fmt.Sprint(int(wt))
	}
	return strings.Join(parts, ", ")
}

func titleOf(v *view.DerivedView, c ir.CandidateID) string {
	if item, ok := v.Candidates[c]; ok {
		return item.Title
	}
	return string(c)
}
