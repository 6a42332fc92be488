package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func (s *recordingSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) published() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type failingStore struct {
	*InMemoryStore
}

func (s *failingStore) Append(context.Context, Event) error {
	return errors.New("store down")
}

type PublisherSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func (s *PublisherSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestEmitPersistsAndFansOut() {
	store := NewInMemoryStore()
	sink := &recordingSink{}
	publisher := NewPublisher(store, s.logger, sink)

	itemID := uuid.New()
	s.Require().NoError(publisher.Emit(s.ctx, Event{
		Action:       ActionReviewEnqueued,
		ReviewItemID: &itemID,
		Subject:      "nicolas maduro moros",
	}))

	stored, listErr := store.ListByItem(s.ctx, itemID)
	s.Require().NoError(listErr)
	s.Require().Len(stored, 1)
	s.NotEqual(uuid.Nil, stored[0].ID, "emit assigns an event id")
	s.False(stored[0].OccurredAt.IsZero(), "emit stamps the event")
	s.Equal(ActionReviewEnqueued, stored[0].Action)

	published := sink.published()
	s.Require().Len(published, 1)
	s.Equal(stored[0].ID, published[0].ID, "sinks see the persisted event")
}

func (s *PublisherSuite) TestSinkFailureDoesNotFailEmit() {
	store := NewInMemoryStore()
	broken := &recordingSink{fail: errors.New("broker unreachable")}
	healthy := &recordingSink{}
	publisher := NewPublisher(store, s.logger, broken, healthy)

	s.Require().NoError(publisher.Emit(s.ctx, Event{Action: ActionEntityAutoApproved}))

	stored, err := store.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(stored, 1, "store write is authoritative regardless of sinks")
	s.Len(healthy.published(), 1, "one broken sink does not starve the rest")
}

func (s *PublisherSuite) TestStoreFailureIsFatalAndSkipsSinks() {
	sink := &recordingSink{}
	publisher := NewPublisher(&failingStore{NewInMemoryStore()}, s.logger, sink)

	err := publisher.Emit(s.ctx, Event{Action: ActionReviewResolved})
	s.Require().Error(err)
	s.Empty(sink.published(), "unpersisted events never reach sinks")
}

func (s *PublisherSuite) TestEmitKeepsCallerAssignedIdentity() {
	store := NewInMemoryStore()
	publisher := NewPublisher(store, s.logger)

	id := uuid.New()
	s.Require().NoError(publisher.Emit(s.ctx, Event{ID: id, Action: ActionWatchlistImported}))

	stored, err := store.ListRecent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(id, stored[0].ID)
}
