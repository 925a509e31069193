package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/roach88/shortlist/internal/ir"
)

// subscriberBuffer bounds the notification channel. Notifications carry no
// row data, so dropping one when the consumer is behind loses nothing.
const subscriberBuffer = 64

// Subscribe listens on Channel and forwards every notification, including
// those caused by other processes. The channel is closed when ctx is done.
//
// The LISTEN connection is re-established after errors. Writes committed
// while it was down are never delivered, so each reconnect emits a Change
// with an empty Log to prompt a full refresh.
func (s *Store) Subscribe(ctx context.Context) (<-chan ir.Change, error) {
	out := make(chan ir.Change, subscriberBuffer)
	go func() {
		defer close(out)
		connected := false
		for {
			err := s.listenLoop(ctx, out, &connected)
			if ctx.Err() != nil {
				s.logger.Debug("change listener stopping")
				return
			}
			s.logger.Warn("change listener error, reconnecting",
				"delay", s.reconnect,
				"error", err,
			)
			select {
			case <-time.After(s.reconnect):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// listenLoop acquires a dedicated connection, LISTENs on Channel and
// forwards notifications until the connection fails or ctx ends.
func (s *Store) listenLoop(ctx context.Context, out chan<- ir.Change, connected *bool) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}
	s.logger.Debug("listening for changes", "channel", Channel)

	if *connected {
		deliver(out, ir.Change{Op: ir.OpUpdate, At: s.now()})
	}
	*connected = true

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, ok := parsePayload(n.Payload)
		if !ok {
			s.logger.Warn("ignoring malformed notification", "payload", n.Payload)
			continue
		}
		change.At = s.now()
		deliver(out, change)
	}
}

func deliver(out chan<- ir.Change, c ir.Change) {
	select {
	case out <- c:
	default:
	}
}

// formatPayload renders the NOTIFY payload, "log:op".
func formatPayload(kind ir.LogKind, op ir.ChangeOp) string {
	return string(kind) + ":" + string(op)
}

func parsePayload(payload string) (ir.Change, bool) {
	kind, op, ok := strings.Cut(payload, ":")
	if !ok || !ir.LogKind(kind).Valid() {
		return ir.Change{}, false
	}
	switch ir.ChangeOp(op) {
	case ir.OpInsert, ir.OpDelete, ir.OpUpdate:
	default:
		return ir.Change{}, false
	}
	return ir.Change{Log: ir.LogKind(kind), Op: ir.ChangeOp(op)}, true
}
