// Package store persists review queue items.
package store

import (
	"context"

	"github.com/google/uuid"

	"memoria/internal/review/models"
)

// Page is one keyset-paginated slice of the pending queue in FIFO order.
// NextCursor is empty on the last page.
type Page struct {
	Items      []*models.ReviewItem
	NextCursor string
}

// Queue is the review item store. Enqueue rejects a second open item for the
// same (normalized_text, article_context); Resolve is a compare-and-set on
// status so concurrent resolutions cannot both win.
type Queue interface {
	// Enqueue persists a new pending item. Returns CodeDuplicateReview when an
	// open item already exists for the same entity and article context.
	Enqueue(ctx context.Context, item *models.ReviewItem) error

	// Get returns the item or sentinel.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.ReviewItem, error)

	// ListPending pages through pending items oldest first. cursor is the
	// opaque NextCursor from the previous page, empty for the first page.
	ListPending(ctx context.Context, cursor string, limit int) (Page, error)

	// Resolve transitions a pending item to a terminal status, recording the
	// verdict and actor. Returns CodeNotFound for unknown ids and
	// CodeAlreadyResolved (with the current status as a detail) when the item
	// is no longer pending.
	Resolve(ctx context.Context, id uuid.UUID, verdict models.CuratorVerdict, resolvedBy string) (*models.ReviewItem, error)

	// RecordAttempt increments the curator attempt counter on a pending item.
	RecordAttempt(ctx context.Context, id uuid.UUID) (int, error)

	// CountPending reports the open queue depth for gauge refresh.
	CountPending(ctx context.Context) (int, error)
}
