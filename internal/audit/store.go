package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store is an append-only event sink with read access for the audit trail.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
