package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
)

// Generator produces question batches by calling the generation proxy
// (POST {proxyURL}/api/generate), which holds the upstream API key.
type Generator struct {
	url    string       // e.g. "http://localhost:8080"
	client *http.Client // reused across calls
}

var _ app.QuestionSource = (*Generator)(nil)

func NewGenerator(proxyURL string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		url:    strings.TrimRight(proxyURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// GenerateRequest is the body accepted by the generation proxy.
type GenerateRequest struct {
	Contents json.RawMessage `json:"contents"`
	Config   json.RawMessage `json:"config"`
}

// GenerateResponse is the body returned by the generation proxy.
type GenerateResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Fetch builds the prompt for criteria and parses the returned batch. Any
// transport, status or parse failure is a *domain.GenerationError; the
// generator does not retry.
func (g *Generator) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawQuestion, error) {
	contents, err := json.Marshal(BuildPrompt(criteria))
	if err != nil {
		return nil, &domain.GenerationError{Reason: "encode prompt", Wrapped: err}
	}

	text, err := g.call(ctx, GenerateRequest{Contents: contents, Config: QuestionConfig()})
	if err != nil {
		return nil, err
	}

	batch, err := ParseQuestions(text)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRaw(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (g *Generator) call(ctx context.Context, body GenerateRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", &domain.GenerationError{Reason: "encode request", Wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &domain.GenerationError{Reason: "create request", Wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &domain.GenerationError{Reason: "proxy unreachable", Wrapped: err}
	}
	defer resp.Body.Close()

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.GenerationError{Reason: fmt.Sprintf("decode proxy response (status %d)", resp.StatusCode), Wrapped: err}
	}
	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("proxy returned status %d", resp.StatusCode)
		if out.Error != "" {
			reason += ": " + out.Error
		}
		return "", &domain.GenerationError{Reason: reason}
	}
	return out.Text, nil
}

// ParseQuestions decodes the model's JSON array, tolerating code fences and
// surrounding prose.
func ParseQuestions(text string) ([]domain.RawQuestion, error) {
	jsonStr := extractJSONArray(text)
	if jsonStr == "" {
		return nil, &domain.GenerationError{Reason: "no JSON array found in response"}
	}
	var batch []domain.RawQuestion
	if err := json.Unmarshal([]byte(jsonStr), &batch); err != nil {
		return nil, &domain.GenerationError{Reason: "invalid JSON from generator", Wrapped: err}
	}
	return batch, nil
}

func extractJSONArray(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
