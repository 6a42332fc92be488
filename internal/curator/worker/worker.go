// Package worker drives the background curator loop.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memoria/internal/audit"
	"memoria/internal/curator"
	"memoria/internal/platform/metrics"
	"memoria/internal/review/models"
	"memoria/internal/review/service"
	"memoria/internal/review/store"
	dErrors "memoria/pkg/domain-errors"
	"memoria/pkg/platform/sentinel"
)

const (
	outcomeOK          = "ok"
	outcomeTimeout     = "timeout"
	outcomeUnparseable = "unparseable"
	outcomeError       = "error"
	outcomeExhausted   = "exhausted"
)

// Worker consumes scheduled review items, asks the curator for a verdict, and
// applies it. Items the curator cannot settle stay pending for a human.
type Worker struct {
	svc         *service.Service
	curator     curator.Curator
	locker      store.Locker
	auditor     audit.Emitter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	inbox       chan uuid.UUID
	callTimeout time.Duration
	maxAttempts int
}

type Config struct {
	InboxSize   int
	CallTimeout time.Duration
	MaxAttempts int
}

func New(
	svc *service.Service,
	c curator.Curator,
	locker store.Locker,
	auditor audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Worker {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		svc:         svc,
		curator:     c,
		locker:      locker,
		auditor:     auditor,
		metrics:     m,
		logger:      logger,
		inbox:       make(chan uuid.UUID, cfg.InboxSize),
		callTimeout: cfg.CallTimeout,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Schedule hands an item to the worker without blocking. False means the
// inbox is full; the item stays pending and a human will get to it.
func (w *Worker) Schedule(id uuid.UUID) bool {
	select {
	case w.inbox <- id:
		return true
	default:
		return false
	}
}

// Run drains the inbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-w.inbox:
			w.handle(ctx, id)
		}
	}
}

func (w *Worker) handle(ctx context.Context, id uuid.UUID) {
	locked, err := w.locker.TryLock(ctx, id, w.callTimeout+time.Minute)
	if err != nil {
		w.logger.ErrorContext(ctx, "review lock failed", "item_id", id, "error", err)
		return
	}
	if !locked {
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, id); err != nil {
			w.logger.WarnContext(ctx, "review unlock failed", "item_id", id, "error", err)
		}
	}()

	item, err := w.svc.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			w.logger.ErrorContext(ctx, "review item load failed", "item_id", id, "error", err)
		}
		return
	}
	if item.Status != models.StatusPending {
		return
	}

	attempts, err := w.svc.RecordCuratorAttempt(ctx, id)
	if err != nil {
		// A racing resolution is fine; anything else is worth a log line.
		if !dErrors.Is(err, dErrors.CodeAlreadyResolved) {
			w.logger.ErrorContext(ctx, "record curator attempt failed", "item_id", id, "error", err)
		}
		return
	}
	if attempts > w.maxAttempts {
		w.metrics.CuratorCalls.WithLabelValues(outcomeExhausted).Inc()
		w.emit(ctx, audit.Event{
			Action:       audit.ActionCuratorFallback,
			ReviewItemID: &item.ID,
			Subject:      item.Entity.NormalizedText,
			Reason:       "curator attempts exhausted, item stays pending for a human",
		})
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()

	start := time.Now()
	verdict, err := w.curator.Review(callCtx, item)
	w.metrics.CuratorLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		w.metrics.CuratorCalls.WithLabelValues(outcomeOK).Inc()
		if err := w.svc.ApplyCuratorVerdict(ctx, id, verdict); err != nil {
			w.logger.ErrorContext(ctx, "apply curator verdict failed", "item_id", id, "error", err)
		}

	case dErrors.Is(err, dErrors.CodeCuratorUnparseable):
		w.metrics.CuratorCalls.WithLabelValues(outcomeUnparseable).Inc()
		w.emit(ctx, audit.Event{
			Action:       audit.ActionCuratorFallback,
			ReviewItemID: &item.ID,
			Subject:      item.Entity.NormalizedText,
			Reason:       "curator reply unparseable, item flagged",
		})
		if err := w.svc.ApplyCuratorVerdict(ctx, id, curator.FallbackVerdict()); err != nil {
			w.logger.ErrorContext(ctx, "apply fallback verdict failed", "item_id", id, "error", err)
		}

	case dErrors.Is(err, dErrors.CodeCuratorTimeout):
		w.metrics.CuratorCalls.WithLabelValues(outcomeTimeout).Inc()
		w.logger.WarnContext(ctx, "curator call timed out", "item_id", id, "attempt", attempts)
		w.reschedule(ctx, id, attempts)

	default:
		w.metrics.CuratorCalls.WithLabelValues(outcomeError).Inc()
		w.logger.ErrorContext(ctx, "curator call failed", "item_id", id, "attempt", attempts, "error", err)
		w.reschedule(ctx, id, attempts)
	}
}

func (w *Worker) reschedule(ctx context.Context, id uuid.UUID, attempts int) {
	if attempts >= w.maxAttempts {
		item, err := w.svc.Get(ctx, id)
		if err != nil {
			return
		}
		w.emit(ctx, audit.Event{
			Action:       audit.ActionCuratorFallback,
			ReviewItemID: &item.ID,
			Subject:      item.Entity.NormalizedText,
			Reason:       "curator attempts exhausted, item stays pending for a human",
		})
		return
	}
	if !w.Schedule(id) {
		w.logger.WarnContext(ctx, "curator inbox full on retry", "item_id", id)
	}
}

func (w *Worker) emit(ctx context.Context, event audit.Event) {
	if err := w.auditor.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
