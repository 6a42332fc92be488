package curator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"memoria/internal/platform/config"
	"memoria/internal/review/models"
	dErrors "memoria/pkg/domain-errors"
)

// HTTPCurator talks to an OpenAI-compatible chat completion endpoint.
type HTTPCurator struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ Curator = (*HTTPCurator)(nil)

// NewHTTP builds a curator client from configuration.
func NewHTTP(cfg config.Curator) *HTTPCurator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCurator{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Review posts the item to the chat endpoint and parses the labeled-line
// reply. Deadline overruns map to CodeCuratorTimeout so the worker can
// distinguish a slow curator from a broken one.
func (c *HTTPCurator) Review(ctx context.Context, item *models.ReviewItem) (models.CuratorVerdict, error) {
	if c.endpoint == "" || c.model == "" {
		return models.CuratorVerdict{}, fmt.Errorf("curator client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildPrompt(item)},
		},
	})
	if err != nil {
		return models.CuratorVerdict{}, fmt.Errorf("marshal curator payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.CuratorVerdict{}, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return models.CuratorVerdict{}, dErrors.Wrap(dErrors.CodeCuratorTimeout, "curator call timed out", err)
		}
		return models.CuratorVerdict{}, fmt.Errorf("call curator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return models.CuratorVerdict{}, fmt.Errorf("curator error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.CuratorVerdict{}, dErrors.Wrap(dErrors.CodeCuratorUnparseable, "curator reply is not valid JSON", err)
	}
	if len(parsed.Choices) == 0 {
		return models.CuratorVerdict{}, dErrors.New(dErrors.CodeCuratorUnparseable, "curator reply has no choices")
	}

	return ParseVerdict(parsed.Choices[0].Message.Content)
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
