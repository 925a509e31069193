package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/shortlist/internal/engine"
	"github.com/roach88/shortlist/internal/metrics"
	"github.com/roach88/shortlist/internal/view"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	MetricsAddr string
}

// WatchUpdate is one JSON line written by watch.
type WatchUpdate struct {
	Generation int64         `json:"generation"`
	Source     string        `json:"source"`
	Error      string        `json:"error,omitempty"`
	View       *view.Summary `json:"view,omitempty"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the view as the group changes it",
		Long: `Keep the view up to date from store change notifications and print
every published update until interrupted.

With --format json, each update is written as one JSON object per line.
With --metrics-addr, Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	ctx := cmd.Context()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), false, engine.WithMetrics(m))
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics server failed", "addr", opts.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		s.logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	updates, unsubscribe := s.engine.Subscribe(16)
	defer unsubscribe()

	w := cmd.OutOrStdout()
	writeUpdate(w, opts.Format, engine.Update{
		Generation: s.engine.Generation(),
		Source:     engine.SourceLoad,
		View:       s.engine.View(),
	})

	runErr := make(chan error, 1)
	go func() { runErr <- s.engine.Run(ctx) }()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			writeUpdate(w, opts.Format, u)
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return WrapExitError(ExitFailure, "watch stopped", err)
			}
			return nil
		}
	}
}

func writeUpdate(w io.Writer, format string, u engine.Update) {
	if format == "json" {
		line := WatchUpdate{Generation: u.Generation, Source: string(u.Source)}
		if u.View != nil {
			sum := view.Summarize(u.View)
			line.View = &sum
		}
		if u.Err != nil {
			line.Error = u.Err.Error()
		}
		_ = json.NewEncoder(w).Encode(line)
		return
	}

	fmt.Fprintf(w, "--- generation %d (%s)\n", u.Generation, u.Source)
	if u.Err != nil {
		fmt.Fprintf(w, "warning: %s\n", strings.TrimSpace(u.Err.Error()))
	}
	if u.View != nil {
		writeView(w, u.View)
	}
}
