// Package match scores candidate names against the sanctions watchlist.
package match

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"memoria/internal/watchlist/models"
)

// Type classifies how a candidate matched the watchlist.
type Type string

const (
	TypeExact Type = "exact"
	TypeAlias Type = "alias"
	TypeFuzzy Type = "fuzzy"
	TypeNone  Type = "none"
)

// Scores assigned to the non-fuzzy match classes.
const (
	exactScore = 100
	aliasScore = 95
)

// DefaultFloor is the minimum similarity score for a fuzzy candidate to count
// as a match at all.
const DefaultFloor = 60

// Result is the outcome of screening one candidate name. It is computed, not
// persisted on its own; the review queue embeds it.
type Result struct {
	Entity *models.Entity `json:"entity,omitempty"`
	Score  float64        `json:"score"`
	Type   Type           `json:"type"`
}

// Matcher finds the best watchlist candidate for a normalized name. It is a
// pure function over a watchlist snapshot: no side effects, bounded by
// snapshot size times candidate length.
type Matcher struct {
	floor float64
}

// New creates a Matcher with the given fuzzy floor; floor <= 0 selects
// DefaultFloor.
func New(floor float64) *Matcher {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &Matcher{floor: floor}
}

// Match screens a normalized candidate name against the snapshot.
//
// Precedence: exact (normalized equality with a primary name, score 100) over
// alias (equality with any alias, score 95) over fuzzy (best levenshtein
// ratio over all names and aliases). At equal fuzzy scores the entity with
// the lower tier number wins, then the lexicographically smallest id, so
// results are deterministic for a given snapshot.
func (m *Matcher) Match(normalized string, snapshot []*models.Entity) Result {
	best := Result{Type: TypeNone}

	for _, entity := range snapshot {
		if entity.NormalizedName == normalized {
			candidate := Result{Entity: entity, Score: exactScore, Type: TypeExact}
			if better(candidate, best) {
				best = candidate
			}
			continue
		}

		aliased := false
		for _, alias := range entity.NormalizedAliases {
			if alias == normalized {
				candidate := Result{Entity: entity, Score: aliasScore, Type: TypeAlias}
				if better(candidate, best) {
					best = candidate
				}
				aliased = true
				break
			}
		}
		if aliased {
			continue
		}

		score := Similarity(normalized, entity.NormalizedName)
		for _, alias := range entity.NormalizedAliases {
			if s := Similarity(normalized, alias); s > score {
				score = s
			}
		}
		candidate := Result{Entity: entity, Score: score, Type: TypeFuzzy}
		if better(candidate, best) {
			best = candidate
		}
	}

	if best.Type == TypeFuzzy && best.Score < m.floor {
		return Result{Type: TypeNone}
	}
	if best.Entity == nil {
		return Result{Type: TypeNone}
	}
	return best
}

// missingTokenPenalty is subtracted per token of length difference when one
// name is a partial form of the other. A two-token candidate against a
// three-token watchlist name ("nicolas maduro" vs "nicolas maduro moros")
// still clears the auto-approve threshold; a bare surname does not.
const missingTokenPenalty = 3

// Similarity scores two normalized names 0-100. It takes the better of a
// whole-string edit-distance ratio and a token-window comparison that
// tolerates dropped name parts, which press extractions routinely produce.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	score := editRatio(a, b)
	if s := tokenWindowRatio(a, b); s > score {
		score = s
	}
	return score
}

// editRatio is an edit-distance ratio scaled 0-100.
func editRatio(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	if distance >= maxLen {
		return 0
	}
	return 100 * (1 - float64(distance)/float64(maxLen))
}

// tokenWindowRatio slides the shorter name across contiguous token windows of
// the longer one, scoring the best window by edit ratio and charging
// missingTokenPenalty for every uncovered token.
func tokenWindowRatio(a, b string) float64 {
	shorter, longer := strings.Fields(a), strings.Fields(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 || len(shorter) == len(longer) {
		return 0
	}

	short := strings.Join(shorter, " ")
	best := 0.0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := strings.Join(longer[i:i+len(shorter)], " ")
		if s := editRatio(short, window); s > best {
			best = s
		}
	}

	best -= missingTokenPenalty * float64(len(longer)-len(shorter))
	if best < 0 {
		return 0
	}
	return best
}

// typeRank orders match classes for tie-breaking: exact > alias > fuzzy.
func typeRank(t Type) int {
	switch t {
	case TypeExact:
		return 3
	case TypeAlias:
		return 2
	case TypeFuzzy:
		return 1
	}
	return 0
}

// better reports whether a should replace b as the best candidate.
func better(a, b Result) bool {
	if b.Entity == nil {
		return a.Entity != nil
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if ra, rb := typeRank(a.Type), typeRank(b.Type); ra != rb {
		return ra > rb
	}
	if a.Entity.Tier != b.Entity.Tier {
		return a.Entity.Tier < b.Entity.Tier
	}
	return a.Entity.ID.String() < b.Entity.ID.String()
}
