package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/example/comment-board/services/comments/internal/thread"
)

const DefaultSubject = "comments.events"

var ErrPublisherDisabled = errors.New("event publisher is disabled")

// NATSPublisher publishes events as JSON on a core NATS subject. Every
// instance subscribes to the subject and relays into its own Hub.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Enabled() bool {
	return p != nil && p.nc != nil
}

func (p *NATSPublisher) Subject() string { return p.subject }

func (p *NATSPublisher) Notify(_ context.Context, ev thread.Event) error {
	if !p.Enabled() {
		return ErrPublisherDisabled
	}
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	return nil
}

// Encode is the wire form shared by the publisher and the relay.
func Encode(ev thread.Event) ([]byte, error) {
	return json.Marshal(ev)
}

func Decode(data []byte) (thread.Event, error) {
	var ev thread.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return thread.Event{}, err
	}
	if ev.Name == "" {
		ev.Name = ev.Kind.Name()
	}
	if ev.CommentID == "" {
		return thread.Event{}, errors.New("event without comment_id")
	}
	return ev, nil
}
