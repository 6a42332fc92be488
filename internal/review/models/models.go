package models

import (
	"time"

	"github.com/google/uuid"

	"memoria/internal/match"
	dErrors "memoria/pkg/domain-errors"
)

// EntityType classifies what kind of thing the extraction pipeline found.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORG"
	EntityLocation     EntityType = "LOCATION"
)

// IsValid checks the entity type against the supported enum values.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityPerson, EntityOrganization, EntityLocation:
		return true
	}
	return false
}

// ExtractedEntity is one name pulled out of an article by the upstream NER
// pipeline. It is read-only input to the screening pipeline.
type ExtractedEntity struct {
	RawText          string     `json:"raw_text"`
	NormalizedText   string     `json:"normalized_text"`
	Type             EntityType `json:"type"`
	ArticleContext   string     `json:"article_context"`
	SourceConfidence int        `json:"source_confidence"`
	Language         string     `json:"language,omitempty"`
}

// Validate enforces the extraction contract. NormalizedText is computed by
// the pipeline, so it is not required here.
func (e ExtractedEntity) Validate() error {
	if e.RawText == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "raw_text is required")
	}
	if !e.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "type must be PERSON, ORG, or LOCATION")
	}
	if e.SourceConfidence < 1 || e.SourceConfidence > 5 {
		return dErrors.New(dErrors.CodeInvalidInput, "source_confidence must be between 1 and 5")
	}
	return nil
}

// Status is the review item lifecycle state. The state machine is explicit:
// pending may transition to any terminal status, terminal statuses are
// absorbing (an administrative override path, outside this interface, may
// exist).
type Status string

const (
	StatusPending       Status = "pending"
	StatusApproved      Status = "approved"
	StatusFlagged       Status = "flagged"
	StatusInvestigating Status = "investigating"
	StatusRejected      Status = "rejected"
)

// IsValid checks the status against the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFlagged, StatusInvestigating, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status ends the item's lifecycle.
func (s Status) Terminal() bool {
	return s.IsValid() && s != StatusPending
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.Terminal()
}

// Recommendation is the curator's suggested disposition.
type Recommendation string

const (
	RecommendApprove     Recommendation = "approve"
	RecommendFlag        Recommendation = "flag"
	RecommendInvestigate Recommendation = "investigate"
	// RecommendReject is reserved for human reviewers; the curator only ever
	// suggests the three dispositions above.
	RecommendReject Recommendation = "reject"
)

// IsValid checks the recommendation against the supported enum values.
func (r Recommendation) IsValid() bool {
	switch r {
	case RecommendApprove, RecommendFlag, RecommendInvestigate, RecommendReject:
		return true
	}
	return false
}

// Status maps a recommendation to the review status it produces.
func (r Recommendation) Status() Status {
	switch r {
	case RecommendApprove:
		return StatusApproved
	case RecommendInvestigate:
		return StatusInvestigating
	case RecommendReject:
		return StatusRejected
	default:
		return StatusFlagged
	}
}

// CuratorVerdict is the structured adjudication of a borderline match, from
// either the LLM curator or a human reviewer.
type CuratorVerdict struct {
	Recommendation    Recommendation `json:"recommendation"`
	Confidence        float64        `json:"confidence"`
	Explanation       string         `json:"explanation"`
	SuggestedCategory string         `json:"suggested_category,omitempty"`
	Issues            []string       `json:"issues,omitempty"`
}

// ReviewItem is one screened extraction awaiting (or past) adjudication.
// Every item embeds exactly one match result; Version supports optimistic
// concurrency on status transitions.
type ReviewItem struct {
	ID              uuid.UUID       `json:"id"`
	Entity          ExtractedEntity `json:"entity"`
	Match           match.Result    `json:"match"`
	Status          Status          `json:"status"`
	Verdict         *CuratorVerdict `json:"verdict,omitempty"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	CuratorAttempts int             `json:"curator_attempts"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

// NewReviewItem creates a pending item for a screened extraction.
func NewReviewItem(entity ExtractedEntity, result match.Result) *ReviewItem {
	return &ReviewItem{
		ID:        uuid.New(),
		Entity:    entity,
		Match:     result,
		Status:    StatusPending,
		Version:   1,
		CreatedAt: time.Now(),
	}
}
