//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memoria/internal/match"
	"memoria/internal/review/models"
	"memoria/internal/review/store"
	wmodels "memoria/internal/watchlist/models"
	wstore "memoria/internal/watchlist/store"
	dErrors "memoria/pkg/domain-errors"
	"memoria/pkg/testutil/containers"
)

type PostgresQueueSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	queue    *store.PostgresQueue
	entity   *wmodels.Entity
}

func TestPostgresQueueSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresQueueSuite))
}

func (s *PostgresQueueSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.queue = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresQueueSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "review_items", "watchlist_entities")
	s.Require().NoError(err)

	s.entity = &wmodels.Entity{
		ExternalID:        "ofac-9913",
		Source:            "ofac",
		FullName:          "Nicolás Maduro Moros",
		NormalizedName:    "nicolas maduro moros",
		SanctionsPrograms: []string{"VENEZUELA-EO13692"},
		Tier:              1,
		ConfidenceLevel:   5,
	}
	_, err = wstore.NewPostgres(s.postgres.DB).Upsert(ctx, s.entity)
	s.Require().NoError(err)
}

func (s *PostgresQueueSuite) newItem(normalized, article string) *models.ReviewItem {
	return models.NewReviewItem(
		models.ExtractedEntity{
			RawText:          normalized,
			NormalizedText:   normalized,
			Type:             models.EntityPerson,
			ArticleContext:   article,
			SourceConfidence: 4,
		},
		match.Result{Entity: s.entity, Score: 88, Type: match.TypeFuzzy},
	)
}

func (s *PostgresQueueSuite) TestEnqueueGetRoundTrip() {
	ctx := context.Background()
	item := s.newItem("maduro", "article-1")
	s.Require().NoError(s.queue.Enqueue(ctx, item))

	got, err := s.queue.Get(ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
	s.Equal("maduro", got.Entity.NormalizedText)
	s.Equal(float64(88), got.Match.Score)
	s.Require().NotNil(got.Match.Entity, "matched entity is hydrated on read")
	s.Equal(s.entity.ID, got.Match.Entity.ID)
	s.Equal([]string{"VENEZUELA-EO13692"}, got.Match.Entity.SanctionsPrograms)
}

func (s *PostgresQueueSuite) TestConcurrentEnqueueDeduplicates() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, duplicateCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.queue.Enqueue(ctx, s.newItem("maduro", "article-1"))
			if err == nil {
				successCount.Add(1)
			} else if dErrors.Is(err, dErrors.CodeDuplicateReview) {
				duplicateCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one enqueue should win")
	s.Equal(int32(goroutines-1), duplicateCount.Load())

	count, err := s.queue.CountPending(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresQueueSuite) TestFIFOPagination() {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		item := s.newItem("maduro", "article-"+string(rune('a'+i)))
		item.CreatedAt = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.queue.Enqueue(ctx, item))
		ids = append(ids, item.ID)
	}

	first, err := s.queue.ListPending(ctx, "", 3)
	s.Require().NoError(err)
	s.Require().Len(first.Items, 3)
	s.Require().NotEmpty(first.NextCursor)
	for i := range first.Items {
		s.Equal(ids[i], first.Items[i].ID)
	}

	rest, err := s.queue.ListPending(ctx, first.NextCursor, 3)
	s.Require().NoError(err)
	s.Require().Len(rest.Items, 2)
	s.Equal(ids[3], rest.Items[0].ID)
	s.Equal(ids[4], rest.Items[1].ID)
	s.Empty(rest.NextCursor)
}

func (s *PostgresQueueSuite) TestConcurrentResolveSingleWinner() {
	ctx := context.Background()
	item := s.newItem("maduro", "article-1")
	s.Require().NoError(s.queue.Enqueue(ctx, item))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			verdict := models.CuratorVerdict{
				Recommendation: models.RecommendApprove,
				Confidence:     0.9,
				Explanation:    "resolution race",
			}
			_, err := s.queue.Resolve(ctx, item.ID, verdict, "rev-"+string(rune('a'+idx)))
			if err == nil {
				successCount.Add(1)
			} else if dErrors.Is(err, dErrors.CodeAlreadyResolved) {
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one resolution should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())

	got, err := s.queue.Get(ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)
	s.Equal(2, got.Version)
}

func (s *PostgresQueueSuite) TestResolvePersistsVerdict() {
	ctx := context.Background()
	item := s.newItem("maduro", "article-1")
	s.Require().NoError(s.queue.Enqueue(ctx, item))

	verdict := models.CuratorVerdict{
		Recommendation:    models.RecommendInvestigate,
		Confidence:        0.6,
		Explanation:       "could be a relative",
		SuggestedCategory: "politics",
		Issues:            []string{"ambiguous surname", "thin context"},
	}
	resolved, err := s.queue.Resolve(ctx, item.ID, verdict, "rev-1")
	s.Require().NoError(err)
	s.Equal(models.StatusInvestigating, resolved.Status)
	s.Require().NotNil(resolved.ResolvedAt)

	got, err := s.queue.Get(ctx, item.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Verdict)
	s.Equal(verdict.Recommendation, got.Verdict.Recommendation)
	s.Equal(verdict.Issues, got.Verdict.Issues)
	s.Equal("politics", got.Verdict.SuggestedCategory)
}

func (s *PostgresQueueSuite) TestRecordAttemptLifecycle() {
	ctx := context.Background()
	item := s.newItem("maduro", "article-1")
	s.Require().NoError(s.queue.Enqueue(ctx, item))

	for want := 1; want <= 3; want++ {
		got, err := s.queue.RecordAttempt(ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	_, err := s.queue.Resolve(ctx, item.ID, models.CuratorVerdict{
		Recommendation: models.RecommendFlag,
		Confidence:     0.5,
		Explanation:    "attempts spent",
	}, "rev-1")
	s.Require().NoError(err)

	_, err = s.queue.RecordAttempt(ctx, item.ID)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeAlreadyResolved))
}
