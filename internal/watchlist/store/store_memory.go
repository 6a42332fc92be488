package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"memoria/internal/watchlist/models"
	"memoria/pkg/platform/sentinel"
)

// InMemory implements Store with a copy-on-write snapshot: every mutation
// rebuilds the published slice, so Snapshot hands out a stable view that
// concurrent imports never touch.
type InMemory struct {
	mu       sync.RWMutex
	byKey    map[string]*models.Entity // externalID + "\x00" + source
	byID     map[uuid.UUID]*models.Entity
	snapshot []*models.Entity
}

// NewInMemory creates an empty in-memory watchlist store.
func NewInMemory() *InMemory {
	return &InMemory{
		byKey: make(map[string]*models.Entity),
		byID:  make(map[uuid.UUID]*models.Entity),
	}
}

func key(externalID, source string) string {
	return externalID + "\x00" + source
}

func (s *InMemory) Upsert(ctx context.Context, entity *models.Entity) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneEntity(entity)
	outcome := OutcomeInserted
	if existing, ok := s.byKey[key(entity.ExternalID, entity.Source)]; ok {
		outcome = OutcomeUpdated
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		delete(s.byID, existing.ID)
	} else if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()

	s.byKey[key(stored.ExternalID, stored.Source)] = stored
	s.byID[stored.ID] = stored
	s.rebuildSnapshot()

	entity.ID = stored.ID
	return outcome, nil
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEntity(entity), nil
}

// Snapshot returns the current immutable view. Callers may hold it across an
// entire matching run; later imports publish a fresh slice instead of
// mutating this one.
func (s *InMemory) Snapshot(ctx context.Context) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey), nil
}

// rebuildSnapshot publishes a new ordered view. Must be called holding s.mu.
func (s *InMemory) rebuildSnapshot() {
	next := make([]*models.Entity, 0, len(s.byKey))
	for _, entity := range s.byKey {
		next = append(next, entity)
	}
	sort.Slice(next, func(i, j int) bool {
		return next[i].ID.String() < next[j].ID.String()
	})
	s.snapshot = next
}

func cloneEntity(e *models.Entity) *models.Entity {
	clone := *e
	clone.Aliases = append([]string(nil), e.Aliases...)
	clone.NormalizedAliases = append([]string(nil), e.NormalizedAliases...)
	clone.SanctionsPrograms = append([]string(nil), e.SanctionsPrograms...)
	return &clone
}
