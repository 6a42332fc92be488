// Package handler exposes watchlist imports over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"memoria/internal/platform/metrics"
	"memoria/internal/platform/middleware"
	"memoria/internal/transport/http/shared"
	"memoria/internal/watchlist/models"
	dErrors "memoria/pkg/domain-errors"
)

// maxImportBatch caps one import request; feeds are chunked upstream.
const maxImportBatch = 10000

// Service defines the watchlist operations the handler needs.
type Service interface {
	Import(ctx context.Context, records []models.ImportRecord) (models.ImportSummary, error)
}

// Handler handles watchlist endpoints.
type Handler struct {
	watchlist    Service
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a watchlist Handler.
func New(
	watchlist Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		watchlist:    watchlist,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the watchlist routes.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(2 * time.Minute))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	router.Use(middleware.RequireRole("admin", h.logger))
	router.Post("/import", h.handleImport)

	r.Mount("/watchlist", router)
}

type importRequest struct {
	Records []models.ImportRecord `json:"records"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid import request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Records) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "records must not be empty"))
		return
	}
	if len(req.Records) > maxImportBatch {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "import batch too large"))
		return
	}

	summary, err := h.watchlist.Import(ctx, req.Records)
	if err != nil {
		h.logger.ErrorContext(ctx, "watchlist import failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "import failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, summary)
}
