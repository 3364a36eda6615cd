package service

import (
	"context"
	"fmt"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/store"
)

// Binder resolves a voice option to an utterance
type Binder interface {
	Bind(text string, option model.VoiceOption) model.Utterance
}

// Speaker plays one utterance at a time
type Speaker interface {
	Renders() bool
	Speak(ctx context.Context, u model.Utterance) ([]byte, error)
	Cancel() bool
}

// NarrationService speaks the narration of a clip
type NarrationService struct {
	runs    store.RunStore
	binder  Binder
	speaker Speaker
}

func NewNarrationService(runs store.RunStore, binder Binder, speaker Speaker) *NarrationService {
	return &NarrationService{
		runs:    runs,
		binder:  binder,
		speaker: speaker,
	}
}

// Speak renders the narration of clip index of a run. The voice is resolved
// again against the catalog as it is now, so voices that arrived after the
// clip was generated are used. Any narration in flight is canceled first.
// When no server-side synthesizer is configured the audio is nil and the
// utterance is returned for the client to speak.
func (s *NarrationService) Speak(ctx context.Context, runID string, index int) ([]byte, *model.Utterance, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(run.Clips) {
		return nil, nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("clip %d not found", index))
	}

	u := s.binder.Bind(run.Clips[index].SceneText, run.Voice)
	if !s.speaker.Renders() {
		s.speaker.Cancel()
		return nil, &u, nil
	}
	audio, err := s.speaker.Speak(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return audio, &u, nil
}

// Cancel stops the narration in flight
func (s *NarrationService) Cancel() bool {
	return s.speaker.Cancel()
}
