package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/view"
)

// VerbResult is the JSON payload of a successful verb.
type VerbResult struct {
	Verb   string       `json:"verb"`
	Record any          `json:"record,omitempty"`
	View   view.Summary `json:"view"`
}

// runVerb opens a session for --actor, runs fn and prints the resulting view.
func runVerb(cmd *cobra.Command, opts *RootOptions, name string, fn func(ctx context.Context, s *session) (any, error)) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := fn(ctx, s)
	if err != nil {
		return err
	}
	if err := s.reload(ctx); err != nil {
		return err
	}

	v := s.engine.View()
	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return f.Success(VerbResult{Verb: name, Record: rec, View: view.Summarize(v)})
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s\n", name)
	writeView(w, v)
	return nil
}

// ProposeOptions holds flags for the propose command.
type ProposeOptions struct {
	*RootOptions
	Author      string
	Category    string
	URL         string
	Description string
}

// NewProposeCommand creates the propose command.
func NewProposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "propose <title>",
		Short:   "Add a candidate to the registry",
		Example: `  shortlist propose "The Dispossessed" --author "Ursula K. Le Guin" --category fiction --actor alice`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, opts.RootOptions, "propose", func(ctx context.Context, s *session) (any, error) {
				return s.engine.Propose(ctx, ir.ActorID(opts.Actor), ir.CandidateItem{
					Title:       args[0],
					Author:      opts.Author,
					Category:    opts.Category,
					URL:         opts.URL,
					Description: opts.Description,
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Author, "author", "", "author or creator")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category (must be allowed by the group policy)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "link to the item")
	cmd.Flags().StringVar(&opts.Description, "description", "", "short description")
	return cmd
}

// NewNominateCommand creates the nominate command.
func NewNominateCommand(rootOpts *RootOptions) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "nominate <candidate>",
		Short: "Nominate a candidate for this cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, rootOpts, "nominate", func(ctx context.Context, s *session) (any, error) {
				return nil, s.engine.Nominate(ctx, ir.ActorID(rootOpts.Actor), ir.CandidateID(args[0]), note)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "why you picked it")
	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw your active nomination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, rootOpts, "withdraw", func(ctx context.Context, s *session) (any, error) {
				return nil, s.engine.WithdrawNomination(ctx, ir.ActorID(rootOpts.Actor))
			})
		},
	}
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <candidate> <1|2>",
		Short: "Score someone else's nomination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := parseWeight(args[1])
			if err != nil {
				return err
			}
			return runVerb(cmd, rootOpts, "score", func(ctx context.Context, s *session) (any, error) {
				return nil, s.engine.Score(ctx, ir.ActorID(rootOpts.Actor), ir.CandidateID(args[0]), w)
			})
		},
	}
}

func parseWeight(s string) (ir.Weight, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !ir.Weight(n).Valid() {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("weight %q must be 1 or 2", s))
	}
	return ir.Weight(n), nil
}

// NewRetractCommand creates the retract command.
func NewRetractCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retract <candidate>",
		Short: "Retract your score on a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, rootOpts, "retract", func(ctx context.Context, s *session) (any, error) {
				return nil, s.engine.RetractScore(ctx, ir.ActorID(rootOpts.Actor), ir.CandidateID(args[0]))
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var everyone bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all of your scores",
		Long: `Delete all of your scores.

With --everyone, an admin deletes every member's scores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "reset"
			if everyone {
				name = "reset_everyone"
			}
			return runVerb(cmd, rootOpts, name, func(ctx context.Context, s *session) (any, error) {
				actor := ir.ActorID(rootOpts.Actor)
				if everyone {
					return nil, s.engine.ResetEveryonesScores(ctx, actor)
				}
				return nil, s.engine.ResetAllScores(ctx, actor)
			})
		},
	}
	cmd.Flags().BoolVar(&everyone, "everyone", false, "delete every member's scores (admin)")
	return cmd
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	var clock string
	cmd := &cobra.Command{
		Use:   "schedule <candidate> <YYYY-MM-DD>",
		Short: "Schedule a candidate and retire it (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, rootOpts, "schedule", func(ctx context.Context, s *session) (any, error) {
				return s.engine.ConfirmSchedule(ctx, ir.ActorID(rootOpts.Actor), ir.CandidateID(args[0]), args[1], clock)
			})
		},
	}
	cmd.Flags().StringVar(&clock, "time", "", "HH:MM (defaults to the policy's default time)")
	return cmd
}

// NewContinueCommand creates the continue command.
func NewContinueCommand(rootOpts *RootOptions) *cobra.Command {
	var clock string
	cmd := &cobra.Command{
		Use:   "continue <YYYY-MM-DD>",
		Short: "Schedule the last scheduled candidate again (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, rootOpts, "continue", func(ctx context.Context, s *session) (any, error) {
				return s.engine.ContinueSchedule(ctx, ir.ActorID(rootOpts.Actor), args[0], clock)
			})
		},
	}
	cmd.Flags().StringVar(&clock, "time", "", "HH:MM (defaults to the policy's default time)")
	return cmd
}

// NewCandidateCommand groups the registry maintenance commands.
func NewCandidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidate",
		Short: "Maintain the candidate registry (admin)",
	}

	sub := func(use, short, name string, fn func(ctx context.Context, s *session, actor ir.ActorID, c ir.CandidateID) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <candidate>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runVerb(cmd, rootOpts, name, func(ctx context.Context, s *session) (any, error) {
					return nil, fn(ctx, s, ir.ActorID(rootOpts.Actor), ir.CandidateID(args[0]))
				})
			},
		}
	}

	cmd.AddCommand(sub("retract", "Hide a candidate from the registry", "retract_candidate",
		func(ctx context.Context, s *session, actor ir.ActorID, c ir.CandidateID) error {
			return s.engine.RetractCandidate(ctx, actor, c)
		}))
	cmd.AddCommand(sub("restore", "Bring back a retracted candidate", "restore_candidate",
		func(ctx context.Context, s *session, actor ir.ActorID, c ir.CandidateID) error {
			return s.engine.RestoreCandidate(ctx, actor, c)
		}))
	cmd.AddCommand(sub("purge", "Delete a candidate that was never scheduled", "purge",
		func(ctx context.Context, s *session, actor ir.ActorID, c ir.CandidateID) error {
			return s.engine.PurgeCandidate(ctx, actor, c)
		}))
	return cmd
}
