package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "memoria/pkg/domain-errors"
)

// Entity is a known sanctioned or regime-connected person or organization.
// Records are immutable once imported except for updates from re-import,
// which upsert by (ExternalID, Source).
type Entity struct {
	ID                uuid.UUID `json:"id"`
	ExternalID        string    `json:"external_id"`
	Source            string    `json:"source"`
	FullName          string    `json:"full_name"`
	NormalizedName    string    `json:"normalized_name"`
	Aliases           []string  `json:"aliases"`
	NormalizedAliases []string  `json:"normalized_aliases"`
	SanctionsPrograms []string  `json:"sanctions_programs"`
	Tier              int       `json:"tier"`
	ConfidenceLevel   int       `json:"confidence_level"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ImportRecord is one row from an external sanctions feed.
type ImportRecord struct {
	ExternalID        string   `json:"external_id"`
	FullName          string   `json:"full_name"`
	Aliases           []string `json:"aliases"`
	SanctionsPrograms []string `json:"sanctions_programs"`
	Source            string   `json:"source"`
	Tier              int      `json:"tier"`
	ConfidenceLevel   int      `json:"confidence_level"`
}

// Validate enforces the feed contract before any normalization work.
func (r ImportRecord) Validate() error {
	if r.ExternalID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "external_id is required")
	}
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "full_name is required")
	}
	if r.Source == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "source is required")
	}
	if r.Tier < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "tier must be >= 1")
	}
	if r.ConfidenceLevel < 1 || r.ConfidenceLevel > 5 {
		return dErrors.New(dErrors.CodeInvalidInput, "confidence_level must be between 1 and 5")
	}
	return nil
}

// RecordError reports a single rejected import row.
type RecordError struct {
	ExternalID string `json:"external_id"`
	Reason     string `json:"reason"`
}

// ImportSummary is the per-batch outcome: partial success is normal, the
// import never fails wholesale.
type ImportSummary struct {
	Imported int           `json:"imported"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []RecordError `json:"errors,omitempty"`
}
