package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventLiked    EventKind = "liked"
	EventDisliked EventKind = "disliked"
)

// Name is the broadcast event name, e.g. "comment:created".
func (k EventKind) Name() string { return "comment:" + string(k) }

// Event is broadcast after a successful mutation. Comment is nil for
// deletions.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"event"`
	Kind       EventKind `json:"kind"`
	CommentID  string    `json:"comment_id"`
	Comment    *View     `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(kind EventKind, commentID string, view *View) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       kind.Name(),
		Kind:       kind,
		CommentID:  commentID,
		Comment:    view,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier delivers events to connected clients.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

type emitter struct {
	notifier Notifier
	log      *zap.Logger
}

// emit never fails the caller: errors and panics from the sink are logged.
func (e emitter) emit(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event notifier panicked",
				zap.String("event", ev.Name),
				zap.String("comment_id", ev.CommentID),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	if err := e.notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		e.log.Warn("event delivery failed",
			zap.String("event", ev.Name),
			zap.String("comment_id", ev.CommentID),
			zap.Error(err))
	}
}
