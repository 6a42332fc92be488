package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type WorkerSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
	store  *InMemoryStore
	worker *Worker
}

func (s *WorkerSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = NewInMemoryStore()
	s.worker = NewWorker(NewPublisher(s.store, s.logger), s.logger, 4)
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) TestEmitDeliversInBackground() {
	runCtx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.worker.Run(runCtx)
	}()

	s.Require().NoError(s.worker.Emit(s.ctx, Event{Action: ActionReviewEnqueued}))
	s.Require().NoError(s.worker.Emit(s.ctx, Event{Action: ActionReviewResolved}))

	s.Require().Eventually(func() bool {
		events, err := s.store.ListRecent(s.ctx, 10)
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	events, err := s.store.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(ActionReviewEnqueued, events[0].Action, "delivery preserves emit order")
	s.Equal(ActionReviewResolved, events[1].Action)
}

func (s *WorkerSuite) TestShutdownDrainsBufferedEvents() {
	s.Require().NoError(s.worker.Emit(s.ctx, Event{Action: ActionEntityAutoApproved}))
	s.Require().NoError(s.worker.Emit(s.ctx, Event{Action: ActionWatchlistImported}))

	runCtx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.worker.Run(runCtx)
	s.Require().ErrorIs(err, context.Canceled)

	events, listErr := s.store.ListRecent(s.ctx, 10)
	s.Require().NoError(listErr)
	s.Len(events, 2, "buffered events survive shutdown")
}

func (s *WorkerSuite) TestFullInboxDropsWithoutBlocking() {
	worker := NewWorker(NewPublisher(s.store, s.logger), s.logger, 1)

	s.Require().NoError(worker.Emit(s.ctx, Event{Action: ActionReviewEnqueued}))
	s.Require().NoError(worker.Emit(s.ctx, Event{Action: ActionReviewResolved}), "overflow drops, never blocks")

	runCtx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.Require().ErrorIs(worker.Run(runCtx), context.Canceled)

	events, err := s.store.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(ActionReviewEnqueued, events[0].Action)
}
