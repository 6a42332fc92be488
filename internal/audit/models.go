package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the pipeline decision an event records.
type Action string

const (
	ActionEntityAutoApproved    Action = "entity_auto_approved"
	ActionEntityPassthrough     Action = "entity_passthrough"
	ActionReviewEnqueued        Action = "review_enqueued"
	ActionCuratorVerdictApplied Action = "curator_verdict_applied"
	ActionCuratorFallback       Action = "curator_fallback"
	ActionReviewResolved        Action = "review_resolved"
	ActionWatchlistImported     Action = "watchlist_imported"
)

// Event is emitted from domain logic to capture key screening decisions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           uuid.UUID  `json:"id"`
	Action       Action     `json:"action"`
	OccurredAt   time.Time  `json:"occurred_at"`
	ReviewItemID *uuid.UUID `json:"review_item_id,omitempty"`
	Subject      string     `json:"subject,omitempty"`
	Route        string     `json:"route,omitempty"`
	Score        *float64   `json:"score,omitempty"`
	Actor        string     `json:"actor,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
}
