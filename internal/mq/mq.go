package mq

import "context"

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Bus wraps a backend with a stable API. It carries the OTP notification
// events between the coordinator and the mailer worker.
type Bus struct {
	backend Backend
}

// New constructs a Bus for the provided backend.
func New(backend Backend) *Bus {
	return &Bus{backend: backend}
}

// Publish sends a message to the named channel.
func (b *Bus) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return b.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes messages from the named channel. It blocks until the
// context is canceled or the backend fails.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return b.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
