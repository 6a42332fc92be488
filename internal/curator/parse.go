package curator

import (
	"strconv"
	"strings"

	"memoria/internal/review/models"
	dErrors "memoria/pkg/domain-errors"
)

// ParseVerdict reads the labeled-line reply format the system prompt asks
// for. RECOMMENDATION, CONFIDENCE, and EXPLANATION are required; CATEGORY and
// ISSUES are optional. Anything the grammar cannot account for is a
// CodeCuratorUnparseable error so the caller can fall back to flagging.
func ParseVerdict(content string) (models.CuratorVerdict, error) {
	var (
		verdict        models.CuratorVerdict
		haveRec        bool
		haveConfidence bool
	)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(label)) {
		case "RECOMMENDATION":
			rec := models.Recommendation(strings.ToLower(value))
			if rec != models.RecommendApprove && rec != models.RecommendFlag && rec != models.RecommendInvestigate {
				return models.CuratorVerdict{}, dErrors.New(dErrors.CodeCuratorUnparseable,
					"unknown recommendation").WithDetail("value", value)
			}
			verdict.Recommendation = rec
			haveRec = true
		case "CONFIDENCE":
			confidence, err := strconv.ParseFloat(value, 64)
			if err != nil || confidence < 0 || confidence > 1 {
				return models.CuratorVerdict{}, dErrors.New(dErrors.CodeCuratorUnparseable,
					"confidence is not a number between 0 and 1").WithDetail("value", value)
			}
			verdict.Confidence = confidence
			haveConfidence = true
		case "EXPLANATION":
			verdict.Explanation = value
		case "CATEGORY":
			verdict.SuggestedCategory = value
		case "ISSUES":
			for _, issue := range strings.Split(value, ";") {
				if issue = strings.TrimSpace(issue); issue != "" {
					verdict.Issues = append(verdict.Issues, issue)
				}
			}
		}
	}

	if !haveRec || !haveConfidence || verdict.Explanation == "" {
		return models.CuratorVerdict{}, dErrors.New(dErrors.CodeCuratorUnparseable,
			"reply is missing required labeled lines")
	}
	return verdict, nil
}

// FallbackVerdict is applied when the curator replies with something the
// grammar cannot parse. The item is flagged rather than guessed at.
func FallbackVerdict() models.CuratorVerdict {
	return models.CuratorVerdict{
		Recommendation: models.RecommendFlag,
		Confidence:     0,
		Explanation:    "curator reply could not be parsed, flagged for human review",
		Issues:         []string{"curator response unparseable"},
	}
}
