// Package service implements watchlist imports from external sanctions feeds.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"memoria/internal/audit"
	"memoria/internal/normalize"
	"memoria/internal/platform/metrics"
	"memoria/internal/watchlist/models"
	"memoria/internal/watchlist/store"
	pstrings "memoria/pkg/platform/strings"
)

// Service upserts sanctions feed records into the watchlist. Failures are
// reported per record so a bad row never sinks the batch.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
}

func New(st store.Store, logger *slog.Logger, m *metrics.Metrics, auditor audit.Emitter) *Service {
	return &Service{store: st, logger: logger, metrics: m, auditor: auditor}
}

// Import validates, normalizes, and upserts a batch of feed records, keyed by
// (external_id, source). The returned summary always reflects every record.
func (s *Service) Import(ctx context.Context, records []models.ImportRecord) (models.ImportSummary, error) {
	var summary models.ImportSummary

	for _, record := range records {
		if err := record.Validate(); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RecordError{
				ExternalID: record.ExternalID,
				Reason:     err.Error(),
			})
			s.count("skipped")
			continue
		}

		entity, err := s.toEntity(record)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RecordError{
				ExternalID: record.ExternalID,
				Reason:     err.Error(),
			})
			s.count("skipped")
			continue
		}

		outcome, err := s.store.Upsert(ctx, entity)
		if err != nil {
			s.logger.ErrorContext(ctx, "watchlist upsert failed",
				"external_id", record.ExternalID,
				"source", record.Source,
				"error", err,
			)
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RecordError{
				ExternalID: record.ExternalID,
				Reason:     "storage failure",
			})
			s.count("skipped")
			continue
		}

		switch outcome {
		case store.OutcomeInserted:
			summary.Imported++
			s.count("imported")
		case store.OutcomeUpdated:
			summary.Updated++
			s.count("updated")
		}
	}

	s.logger.InfoContext(ctx, "watchlist import finished",
		"imported", summary.Imported,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
	)

	if s.auditor != nil {
		err := s.auditor.Emit(ctx, audit.Event{
			Action: audit.ActionWatchlistImported,
			Reason: fmt.Sprintf("imported=%d updated=%d skipped=%d", summary.Imported, summary.Updated, summary.Skipped),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", "error", err)
		}
	}
	return summary, nil
}

func (s *Service) toEntity(record models.ImportRecord) (*models.Entity, error) {
	normalizedName, err := normalize.Normalize(record.FullName)
	if err != nil {
		return nil, err
	}

	rawAliases := pstrings.DedupeAndTrim(record.Aliases)
	normalizedAliases := make([]string, 0, len(rawAliases))
	aliases := make([]string, 0, len(rawAliases))
	for _, alias := range rawAliases {
		normalized, err := normalize.Normalize(alias)
		if err != nil {
			// An unusable alias degrades the record, it does not reject it.
			continue
		}
		aliases = append(aliases, alias)
		normalizedAliases = append(normalizedAliases, normalized)
	}

	return &models.Entity{
		ExternalID:        record.ExternalID,
		Source:            record.Source,
		FullName:          record.FullName,
		NormalizedName:    normalizedName,
		Aliases:           aliases,
		NormalizedAliases: normalizedAliases,
		SanctionsPrograms: pstrings.DedupeAndTrim(record.SanctionsPrograms),
		Tier:              record.Tier,
		ConfidenceLevel:   record.ConfidenceLevel,
	}, nil
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.ImportRecords.WithLabelValues(result).Inc()
	}
}
