// Package curator adjudicates borderline watchlist matches with an external
// LLM reviewer.
package curator

import (
	"context"
	"fmt"
	"strings"

	"memoria/internal/review/models"
)

// Curator produces a verdict for one pending review item.
type Curator interface {
	Review(ctx context.Context, item *models.ReviewItem) (models.CuratorVerdict, error)
}

const systemPrompt = `You are a sanctions screening analyst for a Venezuelan news archive.
Given an extracted name, its article context, and the watchlist entry it may match,
decide whether they refer to the same person or organization.

Respond with exactly these labeled lines:
RECOMMENDATION: approve | flag | investigate
CONFIDENCE: a number between 0 and 1
EXPLANATION: one or two sentences
CATEGORY: an optional topic label, or omit the line
ISSUES: an optional semicolon-separated list of concerns, or omit the line`

// buildPrompt renders the review item as the user message.
func buildPrompt(item *models.ReviewItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extracted name: %s\n", item.Entity.RawText)
	fmt.Fprintf(&b, "Normalized name: %s\n", item.Entity.NormalizedText)
	fmt.Fprintf(&b, "Entity type: %s\n", item.Entity.Type)
	fmt.Fprintf(&b, "Extractor confidence: %d/5\n", item.Entity.SourceConfidence)
	if item.Entity.Language != "" {
		fmt.Fprintf(&b, "Article language: %s\n", item.Entity.Language)
	}
	fmt.Fprintf(&b, "Article context: %s\n", item.Entity.ArticleContext)
	if item.Match.Entity != nil {
		fmt.Fprintf(&b, "Watchlist entry: %s\n", item.Match.Entity.FullName)
		if len(item.Match.Entity.SanctionsPrograms) > 0 {
			fmt.Fprintf(&b, "Sanctions programs: %s\n", strings.Join(item.Match.Entity.SanctionsPrograms, ", "))
		}
	}
	fmt.Fprintf(&b, "Match score: %.1f (%s)\n", item.Match.Score, item.Match.Type)
	return b.String()
}
