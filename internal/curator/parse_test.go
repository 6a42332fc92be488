package curator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"memoria/internal/review/models"
	dErrors "memoria/pkg/domain-errors"
)

type ParseSuite struct {
	suite.Suite
}

func TestParseSuite(t *testing.T) {
	suite.Run(t, new(ParseSuite))
}

func (s *ParseSuite) TestFullReply() {
	verdict, err := ParseVerdict(`RECOMMENDATION: approve
CONFIDENCE: 0.92
EXPLANATION: The article names the sanctioned oil minister directly.
CATEGORY: energy
ISSUES: alias differs from listing; old photograph`)
	s.Require().NoError(err)
	s.Equal(models.RecommendApprove, verdict.Recommendation)
	s.Equal(0.92, verdict.Confidence)
	s.Equal("The article names the sanctioned oil minister directly.", verdict.Explanation)
	s.Equal("energy", verdict.SuggestedCategory)
	s.Equal([]string{"alias differs from listing", "old photograph"}, verdict.Issues)
}

func (s *ParseSuite) TestMinimalReply() {
	verdict, err := ParseVerdict(`RECOMMENDATION: investigate
CONFIDENCE: 0.4
EXPLANATION: Shared surname only, context is a sports story.`)
	s.Require().NoError(err)
	s.Equal(models.RecommendInvestigate, verdict.Recommendation)
	s.Empty(verdict.SuggestedCategory)
	s.Empty(verdict.Issues)
}

func (s *ParseSuite) TestToleratesCaseAndPaddingAndChatter() {
	verdict, err := ParseVerdict(`Here is my assessment.

recommendation:   flag
Confidence: 0.55
explanation: Likely the listed general, but the article is satirical.

Let me know if you need more detail.`)
	s.Require().NoError(err)
	s.Equal(models.RecommendFlag, verdict.Recommendation)
	s.Equal(0.55, verdict.Confidence)
}

func (s *ParseSuite) TestUnparseableReplies() {
	cases := []struct {
		name    string
		content string
	}{
		{"free text", "I think this is probably the same person."},
		{"unknown recommendation", "RECOMMENDATION: reject\nCONFIDENCE: 0.9\nEXPLANATION: no."},
		{"confidence out of range", "RECOMMENDATION: approve\nCONFIDENCE: 7\nEXPLANATION: sure."},
		{"confidence not a number", "RECOMMENDATION: approve\nCONFIDENCE: high\nEXPLANATION: sure."},
		{"missing explanation", "RECOMMENDATION: approve\nCONFIDENCE: 0.9"},
		{"empty", ""},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := ParseVerdict(tc.content)
			s.Require().Error(err)
			s.True(dErrors.Is(err, dErrors.CodeCuratorUnparseable))
		})
	}
}

func (s *ParseSuite) TestFallbackVerdictFlags() {
	verdict := FallbackVerdict()
	s.Equal(models.RecommendFlag, verdict.Recommendation)
	s.Zero(verdict.Confidence)
	s.Contains(verdict.Issues, "curator response unparseable")
}
