package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/keylia/api/internal/config"
)

// VideoGenerator defines the interface for image-to-video generation
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, modelID string, args map[string]interface{}) (*VideoResult, error)
}

// FalClient implements VideoGenerator for fal.ai hosted models
type FalClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// VideoResult is the normalized output of a video generation call
type VideoResult struct {
	URL  string
	Seed int64
}

// falResponse covers the response shapes of the supported model families.
// Kling and Minimax return {"video": {"url": ...}}, Veo returns the same,
// Runway returns a top-level url.
type falResponse struct {
	Video *struct {
		URL string `json:"url"`
	} `json:"video"`
	URL  string `json:"url"`
	Seed int64  `json:"seed"`
}

// NewFalClient creates a new fal.ai API client
func NewFalClient(cfg *config.FalConfig) *FalClient {
	return &FalClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// GenerateVideo runs a model synchronously and returns the clip URL.
// modelID is the fal model path, e.g. "fal-ai/kling-video/v1.6/standard/image-to-video".
func (c *FalClient) GenerateVideo(ctx context.Context, modelID string, args map[string]interface{}) (*VideoResult, error) {
	bodyBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/" + modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	log.Printf("[fal] → %s", modelID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fal API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed falResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	result := &VideoResult{Seed: parsed.Seed}
	switch {
	case parsed.Video != nil && parsed.Video.URL != "":
		result.URL = parsed.Video.URL
	case parsed.URL != "":
		result.URL = parsed.URL
	default:
		return nil, fmt.Errorf("no video URL in response: %s", string(respBody))
	}

	log.Printf("[fal] ← %s completed in %s", modelID, time.Since(start).Round(time.Second))
	return result, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *FalClient) IsConfigured() bool {
	return c.apiKey != ""
}
