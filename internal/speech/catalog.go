// Package speech holds the process-wide voice catalog, binds narration text
// to a voice, and plays one utterance at a time.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/scenereel/api/internal/model"
)

// Catalog is the process-wide list of available voices. It starts empty and
// is populated asynchronously, so readers must not cache it.
type Catalog struct {
	mu        sync.RWMutex
	voices    []model.Voice
	updatedAt time.Time
	listeners []func([]model.Voice)
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// Voices returns a copy of the current voice list
func (c *Catalog) Voices() []model.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Populated reports whether at least one voice is known
func (c *Catalog) Populated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.voices) > 0
}

// UpdatedAt is the time of the last Replace
func (c *Catalog) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Replace swaps the voice list and notifies listeners
func (c *Catalog) Replace(voices []model.Voice) {
	next := make([]model.Voice, len(voices))
	copy(next, voices)

	c.mu.Lock()
	c.voices = next
	c.updatedAt = time.Now().UTC()
	listeners := append([]func([]model.Voice){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(c.Voices())
	}
}

// OnChange registers fn to be called after every Replace
func (c *Catalog) OnChange(fn func([]model.Voice)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Source lists voices from one provider
type Source interface {
	ListVoices(ctx context.Context) ([]model.Voice, error)
}

// FileSource reads voices from a JSON file of the form {"voices":[...]}.
// Entries without a provider are tagged with Provider.
type FileSource struct {
	Path     string
	Provider string
}

type voicesFile struct {
	Voices []struct {
		VoiceID  string `json:"voice_id"`
		Name     string `json:"name"`
		Language string `json:"language,omitempty"`
		Provider string `json:"provider,omitempty"`
	} `json:"voices"`
}

func (f FileSource) ListVoices(ctx context.Context) ([]model.Voice, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var vf voicesFile
	if err := json.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
	}
	voices := make([]model.Voice, 0, len(vf.Voices))
	for _, v := range vf.Voices {
		provider := v.Provider
		if provider == "" {
			provider = f.Provider
		}
		voices = append(voices, model.Voice{ID: v.VoiceID, Name: v.Name, Language: v.Language, Provider: provider})
	}
	return voices, nil
}

// Refresher periodically reloads the catalog from its sources
type Refresher struct {
	catalog  *Catalog
	sources  []Source
	interval time.Duration
}

func NewRefresher(catalog *Catalog, interval time.Duration, sources ...Source) *Refresher {
	return &Refresher{
		catalog:  catalog,
		sources:  sources,
		interval: interval,
	}
}

// RefreshOnce merges every source into the catalog, deduplicated by voice ID
// in source order. When every source fails the catalog is left as it was.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	var merged []model.Voice
	seen := make(map[string]bool)
	var lastErr error
	succeeded := 0

	for _, src := range r.sources {
		voices, err := src.ListVoices(ctx)
		if err != nil {
			log.Printf("[Speech] voice source %T failed: %v", src, err)
			lastErr = err
			continue
		}
		succeeded++
		for _, v := range voices {
			if v.ID == "" || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			merged = append(merged, v)
		}
	}

	if succeeded == 0 && lastErr != nil {
		return lastErr
	}

	r.catalog.Replace(merged)
	log.Printf("[Speech] voice catalog refreshed: %d voice(s)", len(merged))
	return nil
}

// Start refreshes immediately and then on every tick until ctx is done
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		_ = r.RefreshOnce(ctx)
		if r.interval <= 0 {
			return
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.RefreshOnce(ctx)
			}
		}
	}()
}
