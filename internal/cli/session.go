package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/shortlist/internal/engine"
	"github.com/roach88/shortlist/internal/ir"
	"github.com/roach88/shortlist/internal/policy"
	"github.com/roach88/shortlist/internal/store"
	"github.com/roach88/shortlist/internal/store/pgstore"
)

// session is one open store with a loaded engine.
type session struct {
	store  engine.Store
	closer func() error
	policy *policy.Policy
	logger *slog.Logger
	engine *engine.Engine
}

// openSession connects to the configured backend, compiles the group
// policy and loads the view for --actor. requireActor rejects an empty
// --actor for commands that act on someone's behalf.
func openSession(ctx context.Context, opts *RootOptions, logw io.Writer, requireActor bool, engineOpts ...engine.Option) (*session, error) {
	if requireActor && opts.Actor == "" {
		return nil, NewExitError(ExitCommandError, "--actor (or "+EnvActor+") is required")
	}

	logger := newLogger(logw, opts.Verbose)

	pol := policy.Open()
	if opts.Policy != "" {
		p, err := policy.Load(opts.Policy)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load policy", err)
		}
		pol = p
	}

	st, closer, err := openStore(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	all := append([]engine.Option{engine.WithLogger(logger), engine.WithPolicy(pol)}, engineOpts...)
	eng := engine.New(st, ir.ActorID(opts.Actor), all...)
	if err := eng.Load(ctx); err != nil {
		_ = closer()
		return nil, WrapExitError(ExitCommandError, "failed to load view", err)
	}

	logger.Debug("session opened", "actor", opts.Actor, "policy", pol.Name, "postgres", opts.DatabaseURL != "")
	return &session{store: st, closer: closer, policy: pol, logger: logger, engine: eng}, nil
}

func openStore(ctx context.Context, opts *RootOptions, logger *slog.Logger) (engine.Store, func() error, error) {
	if opts.DatabaseURL != "" {
		st, err := pgstore.Open(ctx, opts.DatabaseURL, pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to connect to database", err)
		}
		return st, st.Close, nil
	}

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, st.Close, nil
}

// reload replaces the engine's view with a fresh aggregation of the store.
// One-shot commands never run the reconciliation loop, so this is how a
// verb's optimistic view gets confirmed before it is printed.
func (s *session) reload(ctx context.Context) error {
	if err := s.engine.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to reload view", err)
	}
	return nil
}

func (s *session) Close() error {
	s.engine.Stop()
	return s.closer()
}

// newLogger writes text logs to w: Debug and up when verbose, Info otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
