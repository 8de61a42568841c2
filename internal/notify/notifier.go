package notify

import "context"

// Notifier pushes short trade event messages to an external channel.
// Delivery is best effort; the engine never fails a cycle on it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop is the notifier used when no channel is configured.
type Nop struct{}

func (Nop) Notify(ctx context.Context, text string) error { return nil }
