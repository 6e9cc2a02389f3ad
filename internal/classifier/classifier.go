// Package classifier is the HTTP adapter for the AI triage and extraction
// service. The service owns the prompts and models; this client just moves
// JSON and enforces a timeout.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// Client implements pipeline.Classifier and pipeline.Extractor.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the configured AI endpoint.
func New(cfg *config.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type triageRequest struct {
	Subject     string `json:"subject"`
	BodyPreview string `json:"body_preview"`
	Sender      string `json:"sender"`
}

type extractRequest struct {
	Subject  string `json:"subject"`
	FullBody string `json:"full_body"`
}

// Triage classifies a message. A transport or decode failure is returned as
// an error; the pipeline treats both the same as a nil result.
func (c *Client) Triage(ctx context.Context, subject, bodyPreview, senderAddress string) (*pipeline.TriageResult, error) {
	var result pipeline.TriageResult
	err := c.post(ctx, "/v1/triage", triageRequest{
		Subject:     subject,
		BodyPreview: bodyPreview,
		Sender:      senderAddress,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Classification == "" {
		return nil, fmt.Errorf("triage response missing classification")
	}
	return &result, nil
}

// Extract pulls structured ticket fields from a full body.
func (c *Client) Extract(ctx context.Context, subject, fullBody string) (*pipeline.ExtractionResult, error) {
	var result pipeline.ExtractionResult
	err := c.post(ctx, "/v1/extract", extractRequest{
		Subject:  subject,
		FullBody: fullBody,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("call %s: status %d: %s", path, resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
