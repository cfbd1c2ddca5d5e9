package progress

import "context"

// Sink consumes batches of race events. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies it so scroll sessions
// stay agnostic about buffering and persistence.
type Emitter interface {
	Emit(evt Event)
}
