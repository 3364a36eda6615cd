package e2e

import (
	"net/http"
	"testing"

	"github.com/scenereel/api/internal/model"
)

func TestNarration_Speak(t *testing.T) {
	ta := setupApp(t, nil)

	runID := ta.startRun(t, `{"script": "The ship leaves port.", "voice": "male"}`)
	ta.waitForRun(t, runID)

	resp := ta.doSessionRequest(t, http.MethodPost, "/api/runs/"+runID+"/clips/0/narration", "")
	assertStatus(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", ct)
	}
	if id := resp.Header.Get("X-Voice-Id"); id != "v2" {
		t.Errorf("expected the male voice v2, got %s", id)
	}
	if fb := resp.Header.Get("X-Voice-Fallback"); fb != "" {
		t.Errorf("expected no fallback, got %s", fb)
	}
	if body := readBody(t, resp); body != "v2:The ship leaves port" {
		t.Errorf("unexpected audio %q", body)
	}
}

func TestNarration_UsesVoicesAddedLater(t *testing.T) {
	ta := setupApp(t, nil)
	ta.voices.Replace(nil)

	runID := ta.startRun(t, `{"script": "Quiet morning."}`)
	ta.waitForRun(t, runID)

	ta.voices.Replace([]model.Voice{{ID: "late", Name: "Google Female", Language: "en-US"}})

	resp := ta.doSessionRequest(t, http.MethodPost, "/api/runs/"+runID+"/clips/0/narration", "")
	assertStatus(t, resp, http.StatusOK)
	if id := resp.Header.Get("X-Voice-Id"); id != "late" {
		t.Errorf("expected narration to bind the new voice, got %q", id)
	}
}

func TestNarration_ClientSpeaksWithoutSynthesizer(t *testing.T) {
	ta := setupAppWithSynth(t, nil, nil)

	runID := ta.startRun(t, `{"script": "The ship leaves port."}`)
	ta.waitForRun(t, runID)

	resp := ta.doSessionRequest(t, http.MethodPost, "/api/runs/"+runID+"/clips/0/narration", "")
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	u, ok := body["utterance"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an utterance, got %v", body)
	}
	if u["text"] != "The ship leaves port" {
		t.Errorf("unexpected text %v", u["text"])
	}
	if voice, _ := u["voice"].(map[string]interface{}); voice["id"] != "v1" {
		t.Errorf("expected the female voice v1, got %v", u["voice"])
	}
}

func TestNarration_UnknownClip(t *testing.T) {
	ta := setupApp(t, nil)

	runID := ta.startRun(t, `{"script": "Only one."}`)
	ta.waitForRun(t, runID)

	resp := ta.doSessionRequest(t, http.MethodPost, "/api/runs/"+runID+"/clips/4/narration", "")
	assertStatus(t, resp, http.StatusNotFound)
}

func TestNarration_CancelWhenIdle(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.doSessionRequest(t, http.MethodDelete, "/api/narration", "")
	assertStatus(t, resp, http.StatusOK)
	if body := parseJSON(t, resp); body["canceled"] != false {
		t.Errorf("expected nothing to cancel, got %v", body)
	}
}
