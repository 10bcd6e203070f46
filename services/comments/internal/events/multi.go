package events

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/comment-board/services/comments/internal/thread"
)

// Multi delivers to every sink and joins their errors.
type Multi []thread.Notifier

func (m Multi) Notify(ctx context.Context, ev thread.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier records every event at debug level.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev thread.Event) error {
	if n.Log == nil {
		return nil
	}
	n.Log.Debug("comment event",
		zap.String("event", ev.Name),
		zap.String("event_id", ev.ID),
		zap.String("comment_id", ev.CommentID))
	return nil
}
