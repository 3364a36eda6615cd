package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("scene 2: %w", Quota(StageGeneration, errors.New("429")))

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("expected wrapped quota error to match ErrQuotaExceeded")
	}
	if errors.Is(err, ErrPollingFailed) {
		t.Error("quota error must not match ErrPollingFailed")
	}
	if KindOf(err) != KindQuotaExceeded {
		t.Errorf("expected kind %s, got %s", KindQuotaExceeded, KindOf(err))
	}
}

func TestDownloadCarriesStatus(t *testing.T) {
	err := Download(403)

	e, ok := As(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if e.Status != 403 {
		t.Errorf("expected status 403, got %d", e.Status)
	}
	if !errors.Is(err, ErrDownload) {
		t.Error("expected ErrDownload match")
	}
}

func TestIsQuotaSignal(t *testing.T) {
	cases := map[string]bool{
		"rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED":   true,
		"googleapi: Error 429: Resource has been exhausted (check quota)": true,
		"You exceeded your current quota exceeded limit":                  true,
		"Quota Exceeded for model":                                        true,
		"internal error":                                                  false,
		"":                                                                false,
	}
	for text, want := range cases {
		if got := IsQuotaSignal(text); got != want {
			t.Errorf("IsQuotaSignal(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty kind for a non-apperr error")
	}
}
