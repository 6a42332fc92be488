package audit

import (
	"context"
	"log/slog"
)

// Worker is the asynchronous emit path: Emit enqueues and returns immediately,
// Run delivers through the underlying publisher off the request path. When the
// inbox is full the event is dropped with a log line; audit must never wedge
// the pipeline.
type Worker struct {
	publisher *Publisher
	inbox     chan Event
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, logger *slog.Logger, inboxSize int) *Worker {
	if inboxSize <= 0 {
		inboxSize = 256
	}
	return &Worker{
		publisher: publisher,
		inbox:     make(chan Event, inboxSize),
		logger:    logger,
	}
}

// Emit queues the event for background delivery without blocking the caller.
func (w *Worker) Emit(ctx context.Context, event Event) error {
	select {
	case w.inbox <- event:
	default:
		w.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"action", event.Action,
		)
	}
	return nil
}

// Run delivers queued events until the context is cancelled, then drains
// whatever is still buffered so shutdown does not lose events.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	if err := w.publisher.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
