package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"memoria/internal/review/models"
	dErrors "memoria/pkg/domain-errors"
	"memoria/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded review queue for tests and single-node runs.
// It enforces the same invariants as the PostgreSQL store: one open item per
// (normalized_text, article_context) and compare-and-set resolution.
type InMemory struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.ReviewItem
	open  map[string]uuid.UUID // dedupe key -> pending item id
}

// NewInMemory creates an empty in-memory review queue.
func NewInMemory() *InMemory {
	return &InMemory{
		items: make(map[uuid.UUID]*models.ReviewItem),
		open:  make(map[string]uuid.UUID),
	}
}

func dedupeKey(item *models.ReviewItem) string {
	return item.Entity.NormalizedText + "\x00" + item.Entity.ArticleContext
}

func (s *InMemory) Enqueue(_ context.Context, item *models.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupeKey(item)
	if existing, ok := s.open[key]; ok {
		return dErrors.New(dErrors.CodeDuplicateReview, "an open review already exists for this entity").
			WithDetail("existing_id", existing.String())
	}

	clone := cloneItem(item)
	s.items[clone.ID] = clone
	s.open[key] = clone.ID
	return nil
}

func (s *InMemory) Get(_ context.Context, id uuid.UUID) (*models.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneItem(item), nil
}

func (s *InMemory) ListPending(_ context.Context, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		afterAt time.Time
		afterID uuid.UUID
		paging  bool
	)
	if cursor != "" {
		at, id, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		afterAt, afterID, paging = at, id, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]*models.ReviewItem, 0, len(s.open))
	for _, id := range s.open {
		item := s.items[id]
		if paging && !fifoAfter(item, afterAt, afterID) {
			continue
		}
		pending = append(pending, item)
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})

	page := Page{}
	for _, item := range pending {
		if len(page.Items) == limit {
			last := page.Items[limit-1]
			page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
			break
		}
		page.Items = append(page.Items, cloneItem(item))
	}
	return page, nil
}

func fifoAfter(item *models.ReviewItem, at time.Time, id uuid.UUID) bool {
	if item.CreatedAt.After(at) {
		return true
	}
	return item.CreatedAt.Equal(at) && item.ID.String() > id.String()
}

func (s *InMemory) Resolve(_ context.Context, id uuid.UUID, verdict models.CuratorVerdict, resolvedBy string) (*models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "review item not found")
	}
	if item.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeAlreadyResolved, "review item is no longer pending").
			WithDetail("current_status", string(item.Status))
	}

	now := time.Now()
	v := verdict
	item.Status = verdict.Recommendation.Status()
	item.Verdict = &v
	item.ResolvedBy = resolvedBy
	item.ResolvedAt = &now
	item.Version++
	delete(s.open, dedupeKey(item))

	return cloneItem(item), nil
}

func (s *InMemory) RecordAttempt(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "review item not found")
	}
	if item.Status != models.StatusPending {
		return item.CuratorAttempts, dErrors.New(dErrors.CodeAlreadyResolved, "review item is no longer pending").
			WithDetail("current_status", string(item.Status))
	}
	item.CuratorAttempts++
	return item.CuratorAttempts, nil
}

func (s *InMemory) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open), nil
}

func cloneItem(item *models.ReviewItem) *models.ReviewItem {
	clone := *item
	if item.Verdict != nil {
		v := *item.Verdict
		v.Issues = append([]string(nil), item.Verdict.Issues...)
		clone.Verdict = &v
	}
	if item.ResolvedAt != nil {
		at := *item.ResolvedAt
		clone.ResolvedAt = &at
	}
	return &clone
}
