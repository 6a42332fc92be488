package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"memoria/internal/audit"
	"memoria/internal/classify"
	jwttoken "memoria/internal/jwt_token"
	"memoria/internal/match"
	"memoria/internal/platform/metrics"
	"memoria/internal/review/service"
	"memoria/internal/review/store"
	wmodels "memoria/internal/watchlist/models"
	wservice "memoria/internal/watchlist/service"
	wstore "memoria/internal/watchlist/store"
)

type ReviewHandlerSuite struct {
	suite.Suite
	ctx    context.Context
	router http.Handler
	queue  *store.InMemory
	svc    *service.Service
	token  string
}

func (s *ReviewHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), logger)

	watchlist := wstore.NewInMemory()
	importer := wservice.New(watchlist, logger, nil, nil)
	_, err := importer.Import(s.ctx, []wmodels.ImportRecord{{
		ExternalID:      "ofac-9913",
		FullName:        "Nicolás Maduro Moros",
		Source:          "ofac",
		Tier:            1,
		ConfidenceLevel: 5,
	}})
	s.Require().NoError(err)

	classifier, err := classify.New(classify.DefaultThresholds())
	s.Require().NoError(err)

	s.queue = store.NewInMemory()
	s.svc = service.New(
		watchlist,
		s.queue,
		match.New(match.DefaultFloor),
		classifier,
		nil,
		auditor,
		m,
		logger,
	)

	jwtService := jwttoken.NewJWTService("test-secret", "memoria", "memoria-review")
	s.token, err = jwtService.GenerateReviewerToken("rev-42", "reviewer", time.Hour)
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(s.svc, logger, m, jwtService).Register(r)
	s.router = r
}

func TestReviewHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReviewHandlerSuite))
}

func (s *ReviewHandlerSuite) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func extractionPayload(raw, article string) map[string]any {
	return map[string]any{
		"raw_text":          raw,
		"type":              "PERSON",
		"article_context":   article,
		"source_confidence": 4,
	}
}

func (s *ReviewHandlerSuite) TestProcessAutoApproves() {
	w := s.do(http.MethodPost, "/extractions", extractionPayload("Nicolas Maduro Moros", "article-1"), false)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var outcome map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &outcome))
	s.Equal("auto-approve", outcome["route"])
}

func (s *ReviewHandlerSuite) TestProcessRejectsBadPayload() {
	w := s.do(http.MethodPost, "/extractions", map[string]any{
		"raw_text":          "Nicolas Maduro",
		"type":              "ANIMAL",
		"source_confidence": 4,
	}, false)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ReviewHandlerSuite) TestProcessDuplicateConflicts() {
	first := s.do(http.MethodPost, "/extractions", extractionPayload("Maduro", "article-1"), false)
	s.Require().Equal(http.StatusOK, first.Code, first.Body.String())

	second := s.do(http.MethodPost, "/extractions", extractionPayload("Maduro", "article-1"), false)
	s.Equal(http.StatusConflict, second.Code)
}

func (s *ReviewHandlerSuite) TestPendingRequiresAuth() {
	w := s.do(http.MethodGet, "/review/pending", nil, false)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ReviewHandlerSuite) TestPendingListsFIFO() {
	s.Require().Equal(http.StatusOK,
		s.do(http.MethodPost, "/extractions", extractionPayload("Maduro", "article-1"), false).Code)
	s.Require().Equal(http.StatusOK,
		s.do(http.MethodPost, "/extractions", extractionPayload("Maduro", "article-2"), false).Code)

	w := s.do(http.MethodGet, "/review/pending", nil, true)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items []struct {
			Entity struct {
				ArticleContext string `json:"article_context"`
			} `json:"entity"`
		} `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Items, 2)
	s.Equal("article-1", resp.Items[0].Entity.ArticleContext)
	s.Equal("article-2", resp.Items[1].Entity.ArticleContext)
}

func (s *ReviewHandlerSuite) TestPendingRejectsBadLimit() {
	w := s.do(http.MethodGet, "/review/pending?limit=9000", nil, true)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ReviewHandlerSuite) enqueueViaIntake() string {
	w := s.do(http.MethodPost, "/extractions", extractionPayload("Maduro", "article-1"), false)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var outcome struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &outcome))
	s.Require().NotEmpty(outcome.Item.ID)
	return outcome.Item.ID
}

func (s *ReviewHandlerSuite) TestResolve() {
	id := s.enqueueViaIntake()

	verdict := map[string]any{
		"recommendation": "approve",
		"confidence":     0.95,
		"explanation":    "article names the sitting president",
	}
	w := s.do(http.MethodPost, "/review/"+id+"/resolve", verdict, true)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var item struct {
		Status     string `json:"status"`
		ResolvedBy string `json:"resolved_by"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &item))
	s.Equal("approved", item.Status)
	s.Equal("rev-42", item.ResolvedBy, "reviewer identity comes from the token")
}

func (s *ReviewHandlerSuite) TestResolveTwiceConflicts() {
	id := s.enqueueViaIntake()
	verdict := map[string]any{
		"recommendation": "approve",
		"confidence":     0.95,
		"explanation":    "article names the sitting president",
	}

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/review/"+id+"/resolve", verdict, true).Code)

	w := s.do(http.MethodPost, "/review/"+id+"/resolve", verdict, true)
	s.Require().Equal(http.StatusConflict, w.Code)

	var resp struct {
		Details map[string]string `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("approved", resp.Details["current_status"])
}

func (s *ReviewHandlerSuite) TestResolveUnknownID() {
	w := s.do(http.MethodPost, "/review/5f8c7f2e-44f5-4f74-a628-08bd53b79115/resolve", map[string]any{
		"recommendation": "approve",
		"confidence":     0.9,
		"explanation":    "sure",
	}, true)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ReviewHandlerSuite) TestResolveBadUUID() {
	w := s.do(http.MethodPost, "/review/not-a-uuid/resolve", map[string]any{
		"recommendation": "approve",
		"confidence":     0.9,
		"explanation":    "sure",
	}, true)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ReviewHandlerSuite) TestGetItem() {
	id := s.enqueueViaIntake()

	w := s.do(http.MethodGet, "/review/"+id, nil, true)
	s.Require().Equal(http.StatusOK, w.Code)

	var item struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &item))
	s.Equal(id, item.ID)
	s.Equal("pending", item.Status)
}
