// Package tts synthesizes speech with ElevenLabs.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	model          = "eleven_multilingual_v2"

	// How much of an error body makes it into the error message
	maxErrorBody = 512
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements [quantumwatch.Speaker].
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ quantumwatch.Speaker = (*Client)(nil)

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Speak returns the mp3 stream for text read by voiceID. The caller closes it.
func (c *Client) Speak(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, quantumwatch.ErrUnconfigured
	}

	byts, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling speech request: %s", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(byts))
	if err != nil {
		return nil, fmt.Errorf("error creating speech request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling elevenlabs: %w: %w", quantumwatch.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: elevenlabs returned %d: %s", quantumwatch.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	return resp.Body, nil
}
