package e2e

import (
	"net/http"
	"testing"
)

func TestOptions_English(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.doSessionRequest(t, http.MethodGet, "/api/options", "")
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	styles, ok := body["styles"].([]interface{})
	if !ok || len(styles) != 5 {
		t.Fatalf("expected 5 styles, got %v", body["styles"])
	}
	first := styles[0].(map[string]interface{})
	if first["value"] != "cinematic" || first["label"] != "Cinematic" {
		t.Errorf("expected cinematic first, got %v", first)
	}

	voices := body["voices"].([]interface{})
	if v := voices[0].(map[string]interface{}); v["value"] != "female" {
		t.Errorf("expected female as the default voice, got %v", v)
	}
	if moods := body["moods"].([]interface{}); len(moods) != 5 {
		t.Errorf("expected 5 moods, got %d", len(moods))
	}
}

func TestVoices_Snapshot(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.doSessionRequest(t, http.MethodGet, "/api/voices", "")
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["populated"] != true {
		t.Errorf("expected populated catalog, got %v", body["populated"])
	}
	if voices := body["voices"].([]interface{}); len(voices) != 2 {
		t.Errorf("expected 2 voices, got %d", len(voices))
	}
}
