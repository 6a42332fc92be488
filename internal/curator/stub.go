package curator

import (
	"context"

	"memoria/internal/review/models"
)

// Stub is a rule-based curator for local runs without an LLM endpoint: high
// scores approve, everything else is flagged for a human.
type Stub struct {
	ApproveAbove float64
}

var _ Curator = (*Stub)(nil)

func NewStub() *Stub {
	return &Stub{ApproveAbove: 90}
}

func (s *Stub) Review(_ context.Context, item *models.ReviewItem) (models.CuratorVerdict, error) {
	if item.Match.Score >= s.ApproveAbove {
		return models.CuratorVerdict{
			Recommendation: models.RecommendApprove,
			Confidence:     item.Match.Score / 100,
			Explanation:    "stub curator: score clears the approval line",
		}, nil
	}
	return models.CuratorVerdict{
		Recommendation: models.RecommendFlag,
		Confidence:     0.5,
		Explanation:    "stub curator: borderline score, deferring to a human",
	}, nil
}
