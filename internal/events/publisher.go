package events

import "context"

// Publisher sends messages. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// NoopPublisher drops every message; used when AMQP is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Message) error { return nil }
