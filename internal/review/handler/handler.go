// Package handler exposes the screening pipeline and review queue over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"memoria/internal/platform/metrics"
	"memoria/internal/platform/middleware"
	"memoria/internal/review/models"
	"memoria/internal/review/service"
	"memoria/internal/review/store"
	"memoria/internal/transport/http/shared"
	dErrors "memoria/pkg/domain-errors"
)

// Service defines the pipeline operations the handler needs.
type Service interface {
	Process(ctx context.Context, entity models.ExtractedEntity) (service.Outcome, error)
	Pending(ctx context.Context, cursor string, limit int) (store.Page, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReviewItem, error)
	Resolve(ctx context.Context, id uuid.UUID, verdict models.CuratorVerdict, reviewerID string) (*models.ReviewItem, error)
}

// Handler handles extraction intake and review endpoints.
type Handler struct {
	review       Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a review Handler.
func New(
	review Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		review:       review,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the pipeline routes. Extraction intake is service-to-service
// and rides on network trust; the review endpoints require a reviewer token.
func (h *Handler) Register(r chi.Router) {
	intake := chi.NewRouter()
	intake.Use(middleware.Recovery(h.logger))
	intake.Use(middleware.RequestID)
	intake.Use(middleware.Logger(h.logger))
	intake.Use(middleware.Timeout(30 * time.Second))
	intake.Use(middleware.ContentTypeJSON)
	intake.Use(middleware.LatencyMiddleware(h.metrics))
	intake.Post("/", h.handleProcess)

	review := chi.NewRouter()
	review.Use(middleware.Recovery(h.logger))
	review.Use(middleware.RequestID)
	review.Use(middleware.Logger(h.logger))
	review.Use(middleware.Timeout(30 * time.Second))
	review.Use(middleware.ContentTypeJSON)
	review.Use(middleware.LatencyMiddleware(h.metrics))
	review.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	review.Get("/pending", h.handlePending)
	review.Get("/{id}", h.handleGet)
	review.Post("/{id}/resolve", h.handleResolve)

	r.Mount("/extractions", intake)
	r.Mount("/review", review)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var entity models.ExtractedEntity
	if err := json.NewDecoder(r.Body).Decode(&entity); err != nil {
		h.logger.WarnContext(ctx, "invalid extraction payload",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	outcome, err := h.review.Process(ctx, entity)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInvalidInput, dErrors.CodeDuplicateReview:
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "extraction processing failed",
				"request_id", requestID,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "processing failed"))
		}
		return
	}

	shared.WriteJSON(w, http.StatusOK, outcome)
}

type pendingResponse struct {
	Items      []*models.ReviewItem `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	page, err := h.review.Pending(ctx, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "pending list failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "listing failed"))
		return
	}

	if page.Items == nil {
		page.Items = []*models.ReviewItem{}
	}
	shared.WriteJSON(w, http.StatusOK, pendingResponse{Items: page.Items, NextCursor: page.NextCursor})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a UUID"))
		return
	}

	item, err := h.review.Get(ctx, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	reviewerID := middleware.GetReviewerID(ctx)
	if reviewerID == "" {
		h.logger.ErrorContext(ctx, "reviewer missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a UUID"))
		return
	}

	var verdict models.CuratorVerdict
	if err := json.NewDecoder(r.Body).Decode(&verdict); err != nil {
		h.logger.WarnContext(ctx, "invalid resolve payload",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.review.Resolve(ctx, id, verdict, reviewerID)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeInvalidInput,
			dErrors.CodeNotFound,
			dErrors.CodeAlreadyResolved:
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "resolve failed",
				"request_id", requestID,
				"item_id", id,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "resolve failed"))
		}
		return
	}

	shared.WriteJSON(w, http.StatusOK, item)
}
