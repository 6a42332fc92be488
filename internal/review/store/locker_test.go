package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type LockerSuite struct {
	suite.Suite
	ctx    context.Context
	locker *MemoryLocker
}

func (s *LockerSuite) SetupTest() {
	s.ctx = context.Background()
	s.locker = NewMemoryLocker()
}

func TestLockerSuite(t *testing.T) {
	suite.Run(t, new(LockerSuite))
}

func (s *LockerSuite) TestSecondAcquireFails() {
	id := uuid.New()

	ok, err := s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *LockerSuite) TestUnlockReleases() {
	id := uuid.New()

	ok, err := s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.locker.Unlock(s.ctx, id))

	ok, err = s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *LockerSuite) TestExpiredLockIsReacquirable() {
	id := uuid.New()
	now := time.Now()
	s.locker.clock = func() time.Time { return now }

	ok, err := s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	s.locker.clock = func() time.Time { return now.Add(2 * time.Minute) }

	ok, err = s.locker.TryLock(s.ctx, id, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *LockerSuite) TestLocksAreIndependentPerItem() {
	ok, err := s.locker.TryLock(s.ctx, uuid.New(), time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.locker.TryLock(s.ctx, uuid.New(), time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}
