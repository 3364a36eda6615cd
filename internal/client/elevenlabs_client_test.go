package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scenereel/api/internal/config"
)

func TestElevenLabs_RotatesOnQuota(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("xi-api-key")
		seen = append(seen, key)
		if key == "spent" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.URL.Path != "/text-to-speech/default-voice" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	c, err := NewElevenLabsClient(&config.ElevenLabsConfig{
		APIKeys:        []string{"spent", "fresh"},
		BaseURL:        srv.URL,
		DefaultVoiceID: "default-voice",
	})
	if err != nil {
		t.Fatal(err)
	}

	audio, err := c.Synthesize(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "mp3" {
		t.Errorf("unexpected audio %q", audio)
	}
	if len(seen) != 2 || seen[1] != "fresh" {
		t.Errorf("expected rotation to the second key, saw %v", seen)
	}
}

func TestElevenLabs_AllKeysExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := NewElevenLabsClient(&config.ElevenLabsConfig{APIKeys: []string{"a", "b"}, BaseURL: srv.URL})

	if _, err := c.Synthesize(context.Background(), "v", "hello"); !errors.Is(err, ErrSpeechUnavailable) {
		t.Fatalf("expected ErrSpeechUnavailable, got %v", err)
	}
}

func TestElevenLabs_ListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"voices": []map[string]interface{}{
				{"voice_id": "v1", "name": "Rachel", "labels": map[string]string{"gender": "female", "accent": "american"}},
				{"voice_id": "v2", "name": "Plain"},
			},
		})
	}))
	defer srv.Close()

	c, _ := NewElevenLabsClient(&config.ElevenLabsConfig{APIKeys: []string{"k"}, BaseURL: srv.URL})

	voices, err := c.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if voices[0].Name != "Rachel (female, american)" {
		t.Errorf("unexpected name %q", voices[0].Name)
	}
	if voices[1].Name != "Plain" {
		t.Errorf("unexpected name %q", voices[1].Name)
	}
}
