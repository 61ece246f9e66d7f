package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when the upstream client has no key.
var ErrMissingAPIKey = errors.New("upstream api key not configured")

// GeminiClient calls the generateContent REST endpoint on behalf of the proxy.
type GeminiClient struct {
	baseURL string // e.g. "https://generativelanguage.googleapis.com/v1beta"
	model   string // e.g. "gemini-2.5-flash"
	apiKey  string
	client  *http.Client
}

func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// HasKey reports whether an API key is configured.
func (c *GeminiClient) HasKey() bool {
	return c.apiKey != ""
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentRequest struct {
	Contents         json.RawMessage `json:"contents"`
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateContent forwards contents and config upstream and returns the
// concatenated text of the first candidate. A plain string prompt is wrapped
// into a single user turn.
func (c *GeminiClient) GenerateContent(ctx context.Context, contents, config json.RawMessage) (string, error) {
	if !c.HasKey() {
		return "", ErrMissingAPIKey
	}

	turns, err := normalizeContents(contents)
	if err != nil {
		return "", err
	}
	jsonData, err := json.Marshal(generateContentRequest{Contents: turns, GenerationConfig: config})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode upstream response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("upstream error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("upstream returned no candidates")
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func normalizeContents(raw json.RawMessage) (json.RawMessage, error) {
	var prompt string
	if err := json.Unmarshal(raw, &prompt); err != nil {
		// already structured turns
		return raw, nil
	}
	return json.Marshal([]content{{Role: "user", Parts: []part{{Text: prompt}}}})
}
