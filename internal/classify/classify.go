// Package classify maps match scores to routing decisions.
package classify

import (
	"fmt"

	"memoria/internal/match"
)

// Route is the action tier for a screened extraction.
type Route string

const (
	// RouteAutoApprove: confidence is high enough to approve without review.
	RouteAutoApprove Route = "auto-approve"
	// RouteCuratorReview: medium confidence, schedule an LLM curator pass.
	RouteCuratorReview Route = "llm-review"
	// RouteHumanReview: a plausible match that only a human should judge.
	RouteHumanReview Route = "human-review"
	// RouteNone: no watchlist match; the extraction passes through to the
	// ordinary editorial quality checks outside this pipeline.
	RouteNone Route = "passthrough"
)

// Thresholds drive the score-to-route mapping. They are configuration, not
// constants; defaults follow the production screening setup.
type Thresholds struct {
	AutoApprove   float64 // score >= AutoApprove: approve immediately
	CuratorReview float64 // score >= CuratorReview (and below AutoApprove): LLM review
	Floor         float64 // score >= Floor: human review; below: passthrough
}

// DefaultThresholds returns the standard 95/85/60 configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoApprove: 95, CuratorReview: 85, Floor: match.DefaultFloor}
}

// Classifier is a pure score-to-route mapping.
type Classifier struct {
	thresholds Thresholds
}

// New validates threshold ordering and builds a Classifier.
func New(t Thresholds) (*Classifier, error) {
	if t.AutoApprove <= t.CuratorReview || t.CuratorReview <= t.Floor || t.Floor < 0 {
		return nil, fmt.Errorf("invalid thresholds: need AutoApprove > CuratorReview > Floor >= 0, got %+v", t)
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds exposes the active configuration.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify maps a match result to its route. Boundaries are inclusive on the
// upper tier: exactly 95 auto-approves, exactly 85 goes to the curator,
// exactly the floor goes to a human.
func (c *Classifier) Classify(result match.Result) Route {
	if result.Type == match.TypeNone || result.Entity == nil {
		return RouteNone
	}
	switch {
	case result.Score >= c.thresholds.AutoApprove:
		return RouteAutoApprove
	case result.Score >= c.thresholds.CuratorReview:
		return RouteCuratorReview
	case result.Score >= c.thresholds.Floor:
		return RouteHumanReview
	default:
		return RouteNone
	}
}
