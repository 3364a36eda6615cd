package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/scenereel/api/internal/apikeys"
	"github.com/scenereel/api/internal/config"
	"github.com/scenereel/api/internal/model"
)

// ErrSpeechUnavailable is returned when every ElevenLabs key failed
var ErrSpeechUnavailable = errors.New("all ElevenLabs API keys failed or were exhausted")

// SpeechSynthesizer turns narration text into audio and lists the voices it can use
type SpeechSynthesizer interface {
	ListVoices(ctx context.Context) ([]model.Voice, error)
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// ElevenLabsClient implements SpeechSynthesizer for the ElevenLabs API
type ElevenLabsClient struct {
	httpClient     *http.Client
	keys           *apikeys.KeyManager
	baseURL        string
	modelID        string
	defaultVoiceID string
}

type elevenLabsVoice struct {
	VoiceID string            `json:"voice_id"`
	Name    string            `json:"name"`
	Labels  map[string]string `json:"labels"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// NewElevenLabsClient creates a new ElevenLabs client
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) (*ElevenLabsClient, error) {
	keys, err := apikeys.NewManager("ElevenLabs", cfg.APIKeys)
	if err != nil {
		return nil, err
	}
	return &ElevenLabsClient{
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		keys:           keys,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		modelID:        cfg.ModelID,
		defaultVoiceID: cfg.DefaultVoiceID,
	}, nil
}

// ListVoices returns the voices available to the current account. The gender
// label is folded into the display name so that option matching can see it.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]model.Voice, error) {
	var result elevenLabsVoicesResponse
	if err := c.do(ctx, http.MethodGet, "/voices", nil, "application/json", func(body []byte) error {
		return json.Unmarshal(body, &result)
	}); err != nil {
		return nil, err
	}

	voices := make([]model.Voice, 0, len(result.Voices))
	for _, v := range result.Voices {
		voices = append(voices, model.Voice{
			ID:       v.VoiceID,
			Name:     displayName(v),
			Language: v.Labels["language"],
			Provider: model.VoiceProviderElevenLabs,
		})
	}
	return voices, nil
}

// Synthesize renders text with the given voice, or with the account default
// voice when voiceID is empty.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if voiceID == "" {
		voiceID = c.defaultVoiceID
	}
	payload := map[string]interface{}{
		"text":     text,
		"model_id": c.modelID,
		"voice_settings": map[string]float32{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}

	var audio []byte
	err := c.do(ctx, http.MethodPost, "/text-to-speech/"+voiceID, payload, "audio/mpeg", func(body []byte) error {
		audio = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// do sends a request, rotating to the next key on 401 and 429 answers until
// every key has been tried once.
func (c *ElevenLabsClient) do(ctx context.Context, method, endpoint string, payload interface{}, accept string, decode func([]byte) error) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	for attempt := 1; attempt <= c.keys.Len(); attempt++ {
		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("xi-api-key", c.keys.Current())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)

		log.Printf("[ElevenLabs API] → %s %s (attempt %d)", method, req.URL.String(), attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[ElevenLabs API] ✗ %s %s — request failed: %v", method, req.URL.String(), err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		log.Printf("[ElevenLabs API] ← %d %s %s", resp.StatusCode, method, req.URL.String())

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUnauthorized {
			if err := c.keys.Rotate(); err != nil {
				break
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(respBody))
		}

		return decode(respBody)
	}

	return ErrSpeechUnavailable
}

func displayName(v elevenLabsVoice) string {
	var tags []string
	for _, key := range []string{"gender", "accent"} {
		if l := v.Labels[key]; l != "" {
			tags = append(tags, l)
		}
	}
	if len(tags) == 0 {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, strings.Join(tags, ", "))
}
