package hmacauth

import "context"

// Event describes the outcome of one request validation.
type Event struct {
	Reason   Reason
	AccessID string
	Method   string
	Path     string

	// Err carries the detailed cause of a rejection and is nil when the
	// request was authorized.
	Err error
}

// Observer receives one Event per validated request. Observers must not
// block; they are called on the request goroutine.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts an ordinary function to an Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe calls f(ctx, e).
func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
