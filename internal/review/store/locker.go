package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work on a single review item across curator workers and
// human resolution. TryLock is non-blocking: a false return means someone else
// holds the item and the caller should move on.
type Locker interface {
	TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}

// MemoryLocker is a process-local Locker for tests and single-node runs.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[uuid.UUID]time.Time
	clock func() time.Time
}

// NewMemoryLocker creates an empty process-local locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]time.Time), clock: time.Now}
}

func (l *MemoryLocker) TryLock(_ context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[id]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[id] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, id)
	return nil
}

// RedisLocker coordinates item locks across nodes with SET NX and a TTL, so a
// crashed worker releases its items when the TTL lapses.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "review:lock:"}
}

func (l *RedisLocker) key(id uuid.UUID) string {
	return l.prefix + id.String()
}

func (l *RedisLocker) TryLock(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(id), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire review lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, id uuid.UUID) error {
	if err := l.client.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("release review lock: %w", err)
	}
	return nil
}
