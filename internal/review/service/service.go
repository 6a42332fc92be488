// Package service runs the screening pipeline: normalize, match, classify,
// then route each extraction to approval, review, or passthrough.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"memoria/internal/audit"
	"memoria/internal/classify"
	"memoria/internal/match"
	"memoria/internal/normalize"
	"memoria/internal/platform/metrics"
	"memoria/internal/platform/middleware"
	"memoria/internal/review/models"
	"memoria/internal/review/store"
	wstore "memoria/internal/watchlist/store"
	dErrors "memoria/pkg/domain-errors"
)

// CuratorScheduler hands a review item to the background curator worker.
// Schedule is non-blocking; false means the inbox is full and the item stays
// pending until a human or a later sweep picks it up.
type CuratorScheduler interface {
	Schedule(id uuid.UUID) bool
}

// Outcome is the result of screening one extraction.
type Outcome struct {
	Route classify.Route     `json:"route"`
	Match match.Result       `json:"match"`
	Item  *models.ReviewItem `json:"item,omitempty"`
}

// Service orchestrates the screening pipeline and the review queue.
type Service struct {
	watchlist  wstore.Store
	queue      store.Queue
	matcher    *match.Matcher
	classifier *classify.Classifier
	scheduler  CuratorScheduler
	auditor    audit.Emitter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(
	watchlist wstore.Store,
	queue store.Queue,
	matcher *match.Matcher,
	classifier *classify.Classifier,
	scheduler CuratorScheduler,
	auditor audit.Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		watchlist:  watchlist,
		queue:      queue,
		matcher:    matcher,
		classifier: classifier,
		scheduler:  scheduler,
		auditor:    auditor,
		metrics:    m,
		logger:     logger,
	}
}

// SetScheduler installs the curator scheduler after construction. The worker
// needs the service and the service needs the worker; wiring breaks the cycle
// here.
func (s *Service) SetScheduler(scheduler CuratorScheduler) {
	s.scheduler = scheduler
}

// Process screens one extracted entity. Auto-approved and passthrough
// extractions never touch the queue; medium and low confidence matches are
// enqueued exactly once per (entity, article context).
func (s *Service) Process(ctx context.Context, entity models.ExtractedEntity) (Outcome, error) {
	if err := entity.Validate(); err != nil {
		return Outcome{}, err
	}

	normalized, err := normalize.Normalize(entity.RawText)
	if err != nil {
		return Outcome{}, err
	}
	entity.NormalizedText = normalized

	snapshot, err := s.watchlist.Snapshot(ctx)
	if err != nil {
		return Outcome{}, dErrors.Wrap(dErrors.CodeInternal, "load watchlist snapshot", err)
	}

	result := s.matcher.Match(normalized, snapshot)
	route := s.classifier.Classify(result)

	s.metrics.MatchScore.Observe(result.Score)
	s.metrics.ExtractionsProcessed.WithLabelValues(string(route)).Inc()

	switch route {
	case classify.RouteAutoApprove:
		s.emit(ctx, audit.Event{
			Action:  audit.ActionEntityAutoApproved,
			Subject: normalized,
			Route:   string(route),
			Score:   &result.Score,
			Reason:  string(result.Type) + " match against " + result.Entity.FullName,
		})
		return Outcome{Route: route, Match: result}, nil

	case classify.RouteCuratorReview, classify.RouteHumanReview:
		item := models.NewReviewItem(entity, result)
		if err := s.queue.Enqueue(ctx, item); err != nil {
			if dErrors.Is(err, dErrors.CodeDuplicateReview) {
				s.logger.WarnContext(ctx, "duplicate review suppressed",
					"normalized_text", normalized,
					"request_id", middleware.GetRequestID(ctx),
				)
			}
			return Outcome{Route: route, Match: result}, err
		}

		itemID := item.ID
		s.emit(ctx, audit.Event{
			Action:       audit.ActionReviewEnqueued,
			ReviewItemID: &itemID,
			Subject:      normalized,
			Route:        string(route),
			Score:        &result.Score,
		})

		if route == classify.RouteCuratorReview && s.scheduler != nil {
			if !s.scheduler.Schedule(item.ID) {
				s.logger.WarnContext(ctx, "curator inbox full, item stays pending",
					"item_id", item.ID,
				)
			}
		}
		s.refreshPendingGauge(ctx)
		return Outcome{Route: route, Match: result, Item: item}, nil

	default:
		s.emit(ctx, audit.Event{
			Action:  audit.ActionEntityPassthrough,
			Subject: normalized,
			Route:   string(route),
			Score:   &result.Score,
		})
		return Outcome{Route: route, Match: result}, nil
	}
}

// Pending pages through the open queue, oldest first.
func (s *Service) Pending(ctx context.Context, cursor string, limit int) (store.Page, error) {
	return s.queue.ListPending(ctx, cursor, limit)
}

// Get returns a single review item.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ReviewItem, error) {
	return s.queue.Get(ctx, id)
}

// Resolve applies a human reviewer's verdict. A second resolution of the same
// item returns CodeAlreadyResolved with the item's current status; the stored
// verdict is not touched.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, verdict models.CuratorVerdict, reviewerID string) (*models.ReviewItem, error) {
	if err := validateVerdict(verdict); err != nil {
		return nil, err
	}

	item, err := s.queue.Resolve(ctx, id, verdict, reviewerID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionReviewResolved,
		ReviewItemID: &item.ID,
		Subject:      item.Entity.NormalizedText,
		Route:        string(item.Status),
		Actor:        reviewerID,
		Reason:       verdict.Explanation,
	})
	s.refreshPendingGauge(ctx)
	return item, nil
}

// ApplyCuratorVerdict records the LLM curator's verdict. If the item was
// resolved while the curator was thinking, the stale verdict is discarded
// without error.
func (s *Service) ApplyCuratorVerdict(ctx context.Context, id uuid.UUID, verdict models.CuratorVerdict) error {
	if err := validateVerdict(verdict); err != nil {
		return err
	}

	item, err := s.queue.Resolve(ctx, id, verdict, "llm-curator")
	if err != nil {
		if dErrors.Is(err, dErrors.CodeAlreadyResolved) {
			s.logger.InfoContext(ctx, "stale curator verdict discarded", "item_id", id)
			return nil
		}
		return err
	}

	s.emit(ctx, audit.Event{
		Action:       audit.ActionCuratorVerdictApplied,
		ReviewItemID: &item.ID,
		Subject:      item.Entity.NormalizedText,
		Route:        string(item.Status),
		Actor:        "llm-curator",
		Reason:       verdict.Explanation,
	})
	s.refreshPendingGauge(ctx)
	return nil
}

// RecordCuratorAttempt bumps the attempt counter on a still-pending item and
// returns the new count.
func (s *Service) RecordCuratorAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	return s.queue.RecordAttempt(ctx, id)
}

func validateVerdict(verdict models.CuratorVerdict) error {
	if !verdict.Recommendation.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "recommendation must be approve, flag, or investigate")
	}
	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "confidence must be between 0 and 1")
	}
	if verdict.Explanation == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "explanation is required")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.RequestID = middleware.GetRequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) refreshPendingGauge(ctx context.Context) {
	count, err := s.queue.CountPending(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "pending count refresh failed", "error", err)
		return
	}
	s.metrics.PendingReviews.Set(float64(count))
}
