package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Database    string // SQLite path
	DatabaseURL string // PostgreSQL URL; takes precedence over Database
	Actor       string
	Policy      string // path to a CUE group policy
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Environment variables consulted for flag defaults.
const (
	EnvDatabase    = "SHORTLIST_DB"
	EnvDatabaseURL = "SHORTLIST_DATABASE_URL"
	EnvActor       = "SHORTLIST_ACTOR"
	EnvPolicy      = "SHORTLIST_POLICY"
)

// NewRootCommand creates the root command for the shortlist CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shortlist",
		Short: "shortlist - pick the group's next item together",
		Long: `Members propose candidates, nominate one each and score each other's
nominations. An admin schedules the winner, which is retired for good.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Database, "db", envOr(EnvDatabase, "shortlist.db"), "path to SQLite database")
	pf.StringVar(&opts.DatabaseURL, "database-url", os.Getenv(EnvDatabaseURL), "PostgreSQL URL (overrides --db)")
	pf.StringVar(&opts.Actor, "actor", os.Getenv(EnvActor), "acting member")
	pf.StringVar(&opts.Policy, "policy", os.Getenv(EnvPolicy), "path to a CUE group policy")

	cmd.AddCommand(NewProposeCommand(opts))
	cmd.AddCommand(NewNominateCommand(opts))
	cmd.AddCommand(NewWithdrawCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))
	cmd.AddCommand(NewRetractCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewContinueCommand(opts))
	cmd.AddCommand(NewCandidateCommand(opts))
	cmd.AddCommand(NewViewCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are rendered in the selected format: JSON envelopes on stdout,
// text on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !isReported(err) {
		f := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
		if opts.Format == "json" {
			f.Writer = stdout
		}
		code, message, details := describeError(err)
		_ = f.Error(code, message, details)
	}
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
