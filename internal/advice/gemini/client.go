// Package gemini provides an advice generator backed by the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prohealth/prohealth/internal/advice"
	"github.com/prohealth/prohealth/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Gemini API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// ProviderName identifies this provider.
	ProviderName = "gemini"

	jsonMimeType = "application/json"
	apiKeyHeader = "x-goog-api-key"

	// maxErrorBody caps how much of a non-200 body is kept for logging.
	maxErrorBody = 512
)

// ClientConfig holds configuration for the Gemini client.
type ClientConfig struct {
	// APIKey authenticates requests. An empty key makes every call fail
	// with advice.ErrMissingCredential.
	APIKey string

	// Model is the model name (defaults to DefaultModel).
	Model string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client without retries is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 30s).
	Timeout time.Duration

	// Registry receives the default client's health (optional).
	Registry *resilience.Registry
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls Gemini generateContent with a structured-output schema.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient HTTPDoer
}

var _ advice.Generator = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = advice.DefaultTimeout
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:       ProviderName,
			Timeout:    timeout,
			MaxRetries: 0,
			Registry:   cfg.Registry,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API request/response types (from the Gemini REST API).

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   *advice.Schema `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// Generate sends prompt with schema and returns the first candidate's text.
// It makes exactly one HTTP call.
func (c *Client) Generate(ctx context.Context, prompt string, schema *advice.Schema) (string, error) {
	if c.apiKey == "" {
		return "", advice.ErrMissingCredential
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: jsonMimeType,
			ResponseSchema:   schema,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", jsonMimeType)
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep the request URL out of errors that end up in logs.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("unexpected status %d from generateContent: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode generateContent response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", advice.ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", advice.ErrEmptyResponse
	}

	return text.String(), nil
}
