// Package store persists the sanctions watchlist. Stores are interface-driven
// so the matcher and the import service can run against in-memory or Postgres
// persistence without rewiring business code.
package store

import (
	"context"

	"github.com/google/uuid"

	"memoria/internal/watchlist/models"
)

// UpsertOutcome tells the import service whether an upsert created or
// replaced a record.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
)

// Store holds watchlist entities keyed by (ExternalID, Source).
//
// Snapshot must return an immutable view: imports running concurrently with
// matching never block readers and never mutate a slice a reader holds.
type Store interface {
	Upsert(ctx context.Context, entity *models.Entity) (UpsertOutcome, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Entity, error)
	Snapshot(ctx context.Context) ([]*models.Entity, error)
	Count(ctx context.Context) (int, error)
}
