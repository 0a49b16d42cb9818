// Package events publishes change notifications for catalog and order
// documents so that downstream consumers (storefront caches, reporting)
// can refresh after a write.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Entity names the kind of document that changed.
type Entity string

const (
	EntityProduct Entity = "product"
	EntityOrder   Entity = "order"
)

// Action names the kind of change.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is a single change notification.
type Event struct {
	Entity Entity
	Action Action
	ID     string
	At     time.Time
}

// RoutingKey returns the topic routing key, e.g. "order.updated".
func (e Event) RoutingKey() string {
	return string(e.Entity) + "." + string(e.Action)
}

// Publisher delivers change notifications. Publish failures never undo the
// write that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
	Err    error
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return r.Err
}

// WithTimeout bounds every Publish on p by d, even when p ignores its
// context. The event is still published after the caller's context is
// cancelled. A non-positive d returns p unchanged.
func WithTimeout(p Publisher, d time.Duration) Publisher {
	if d <= 0 {
		return p
	}
	return &timeoutPublisher{next: p, timeout: d}
}

type timeoutPublisher struct {
	next    Publisher
	timeout time.Duration
}

func (t *timeoutPublisher) Publish(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- t.next.Publish(ctx, e) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "publish %s", e.RoutingKey())
	}
}
