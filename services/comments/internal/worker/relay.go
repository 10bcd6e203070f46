// Package worker runs background consumers for the comments service.
package worker

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/events"
	"github.com/example/comment-board/services/comments/internal/thread"
)

const relayBuffer = 256

// Relay feeds events published on the broadcast subject by any instance into
// the local hub, so stream clients see mutations made elsewhere.
type Relay struct {
	Subject string
	Sink    thread.Notifier
	Log     *zap.Logger
}

// Start subscribes and consumes until ctx is cancelled.
func (r *Relay) Start(ctx context.Context, nc *nats.Conn) error {
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	subject := r.Subject
	if subject == "" {
		subject = events.DefaultSubject
	}

	msgs := make(chan *nats.Msg, relayBuffer)
	sub, err := nc.ChanSubscribe(subject, msgs)
	if err != nil {
		return err
	}
	r.Log.Info("event relay subscribed", zap.String("subject", subject))

	go func() {
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				r.Log.Warn("event relay unsubscribe", zap.Error(err))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				r.Handle(ctx, m.Data)
			}
		}
	}()
	return nil
}

// Handle decodes one message and forwards it. Malformed payloads are logged
// and skipped.
func (r *Relay) Handle(ctx context.Context, data []byte) {
	ev, err := events.Decode(data)
	if err != nil {
		r.Log.Warn("event relay: bad payload", zap.Error(err))
		return
	}
	if err := r.Sink.Notify(ctx, ev); err != nil {
		r.Log.Warn("event relay: deliver",
			zap.String("event", ev.Name),
			zap.String("comment_id", ev.CommentID),
			zap.Error(err))
	}
}
