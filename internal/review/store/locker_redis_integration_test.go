//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memoria/internal/review/store"
	"memoria/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *store.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.locker = store.NewRedisLocker(s.redis.Client)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestLockExcludesSecondHolder() {
	ctx := context.Background()
	id := uuid.New()

	ok, err := s.locker.TryLock(ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.locker.TryLock(ctx, id, time.Minute)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.locker.Unlock(ctx, id))

	ok, err = s.locker.TryLock(ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisLockerSuite) TestLockExpires() {
	ctx := context.Background()
	id := uuid.New()

	ok, err := s.locker.TryLock(ctx, id, 100*time.Millisecond)
	s.Require().NoError(err)
	s.True(ok)

	time.Sleep(200 * time.Millisecond)

	ok, err = s.locker.TryLock(ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok, "expired lock must be reacquirable")
}
