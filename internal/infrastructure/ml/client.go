package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// Client talks to an external inference service for classification and summaries.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.TextClassifier = (*Client)(nil)
var _ ports.Summarizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type candidate struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords,omitempty"`
}

// Classify sends the article text with the candidate taxonomy and returns the chosen name.
func (c *Client) Classify(ctx context.Context, text string, candidates []domain.Industry) (string, error) {
	payload := struct {
		Text       string      `json:"text"`
		Candidates []candidate `json:"candidates"`
	}{Text: text, Candidates: make([]candidate, 0, len(candidates))}
	for _, ind := range candidates {
		payload.Candidates = append(payload.Candidates, candidate{ID: ind.ID, Name: ind.Name, Keywords: ind.Keywords})
	}

	var resp struct {
		Industry string `json:"industry"`
	}
	if err := c.post(ctx, "/classify", payload, &resp); err != nil {
		return "", err
	}
	return resp.Industry, nil
}

// Summarize requests a summary for an article title.
func (c *Client) Summarize(ctx context.Context, title string) (string, error) {
	payload := map[string]any{
		"title": title,
	}

	var resp struct {
		Summary string `json:"summary"`
	}

	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Summary), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if v == nil {
		if err := resp.Body.Close(); err != nil {
			return fmt.Errorf("close response body: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
