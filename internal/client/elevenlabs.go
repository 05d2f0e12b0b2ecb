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
	"github.com/keylia/api/internal/model"
)

// SpeechSynthesizer defines the interface for text-to-speech operations
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req *SynthesizeRequest) ([]byte, error)
	ListVoices(ctx context.Context) ([]model.VoiceOption, error)
}

// ElevenLabsClient implements SpeechSynthesizer for the ElevenLabs API
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
}

// SynthesizeRequest carries one narration to convert to speech
type SynthesizeRequest struct {
	Text    string
	VoiceID string
	Style   model.VoiceStyle
}

// voiceSettings tunes delivery per narration style
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voicesResponse struct {
	Voices []struct {
		VoiceID    string            `json:"voice_id"`
		Name       string            `json:"name"`
		Category   string            `json:"category"`
		PreviewURL string            `json:"preview_url"`
		Labels     map[string]string `json:"labels"`
	} `json:"voices"`
}

// RecommendedVoices is the curated default set offered to clients, keyed by
// gender. The first entry of each list is the fallback voice.
var RecommendedVoices = map[string][]model.VoiceOption{
	"female": {
		{VoiceID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Label: "Warm, professional", Category: "premade"},
		{VoiceID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Label: "Calm, articulate", Category: "premade"},
	},
	"male": {
		{VoiceID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Label: "Deep, confident", Category: "premade"},
		{VoiceID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Label: "Young, energetic", Category: "premade"},
	},
}

// DefaultVoiceID returns the fallback voice for a gender.
func DefaultVoiceID(gender string) string {
	voices, ok := RecommendedVoices[gender]
	if !ok || len(voices) == 0 {
		voices = RecommendedVoices["female"]
	}
	return voices[0].VoiceID
}

// NewElevenLabsClient creates a new ElevenLabs API client
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
	}
}

// settingsForStyle maps a narration style to delivery parameters
func settingsForStyle(style model.VoiceStyle) voiceSettings {
	switch style {
	case model.VoiceStyleFriendly:
		return voiceSettings{Stability: 0.4, SimilarityBoost: 0.75, Style: 0.35}
	case model.VoiceStyleWarm:
		return voiceSettings{Stability: 0.55, SimilarityBoost: 0.8, Style: 0.2}
	default:
		return voiceSettings{Stability: 0.6, SimilarityBoost: 0.75}
	}
}

// Synthesize converts text to speech and returns MP3 audio bytes
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req *SynthesizeRequest) ([]byte, error) {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = DefaultVoiceID("female")
	}

	body := ttsRequest{
		Text:          req.Text,
		ModelID:       c.modelID,
		VoiceSettings: settingsForStyle(req.Style),
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Accept", "audio/mpeg")

	log.Printf("[ElevenLabs] → synthesize voice=%s chars=%d", voiceID, len(req.Text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	log.Printf("[ElevenLabs] ← synthesized %d bytes", len(respBody))
	return respBody, nil
}

// ListVoices retrieves the available voices from the account
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]model.VoiceOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed voicesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	voices := make([]model.VoiceOption, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		label := v.Labels["description"]
		if label == "" {
			label = v.Labels["accent"]
		}
		voices = append(voices, model.VoiceOption{
			VoiceID:    v.VoiceID,
			Name:       v.Name,
			Label:      label,
			PreviewURL: v.PreviewURL,
			Category:   v.Category,
		})
	}
	return voices, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}
