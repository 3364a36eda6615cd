package main

import (
	"context"
	"log"

	"github.com/scenereel/api/internal/client"
	"github.com/scenereel/api/internal/config"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/speech"
)

type voiceStack struct {
	catalog   *speech.Catalog
	refresher *speech.Refresher
	binder    *speech.Binder
	player    *speech.Player
}

// newVoiceStack wires the voice catalog and narration. With ElevenLabs
// configured only its own voices are bound, since it rejects any other
// voice ID. Without it narration binds the browser voices from the voices
// file and the client speaks them.
func newVoiceStack(cfg *config.Config) *voiceStack {
	sources := []speech.Source{speech.FileSource{Path: cfg.Speech.VoicesFile, Provider: model.VoiceProviderBrowser}}
	renderable := model.VoiceProviderBrowser

	var synth speech.Synthesizer
	if cfg.ElevenLabs.IsConfigured() {
		el, err := client.NewElevenLabsClient(&cfg.ElevenLabs)
		if err != nil {
			log.Printf("Warning: ElevenLabs disabled: %v", err)
		} else {
			synth = el
			sources = append(sources, el)
			renderable = model.VoiceProviderElevenLabs
		}
	}

	catalog := speech.NewCatalog()
	catalog.OnChange(func(voices []model.Voice) {
		log.Printf("[Speech] %d voice(s) available", len(voices))
	})

	return &voiceStack{
		catalog:   catalog,
		refresher: speech.NewRefresher(catalog, cfg.Speech.RefreshInterval, sources...),
		binder:    speech.NewBinder(catalog, cfg.Speech.PreferredProvider, renderable),
		player:    speech.NewPlayer(synth),
	}
}

// Start populates the catalog in the background
func (v *voiceStack) Start(ctx context.Context) {
	v.refresher.Start(ctx)
}
