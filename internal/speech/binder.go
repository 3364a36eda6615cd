package speech

import (
	"log"
	"strings"

	"github.com/scenereel/api/internal/model"
)

// Binder attaches narration text to the best voice for an option
type Binder struct {
	catalog    *Catalog
	preferred  string
	renderable map[string]bool
}

// NewBinder creates a binder over catalog. When renderable providers are
// given, only voices tagged with one of them are ever bound, so the chosen
// voice is always one the configured synthesizer can speak.
func NewBinder(catalog *Catalog, preferredProvider string, renderable ...string) *Binder {
	b := &Binder{
		catalog:   catalog,
		preferred: strings.ToLower(preferredProvider),
	}
	if len(renderable) > 0 {
		b.renderable = make(map[string]bool, len(renderable))
		for _, p := range renderable {
			b.renderable[strings.ToLower(p)] = true
		}
	}
	return b
}

// Bind resolves option against the catalog as it is right now:
//  1. a voice whose name carries both the preferred provider and the option
//  2. any voice whose name carries the option
//  3. the first voice, flagged as a fallback
//  4. no voice at all when no usable voice is known yet
//
// Matching is a case-insensitive substring test on the voice name.
func (b *Binder) Bind(text string, option model.VoiceOption) model.Utterance {
	u := model.Utterance{Text: text}

	voices := b.usable(b.catalog.Voices())
	if len(voices) == 0 {
		return u
	}

	token := strings.ToLower(string(option))

	if b.preferred != "" {
		for i := range voices {
			name := strings.ToLower(voices[i].Name)
			if strings.Contains(name, b.preferred) && strings.Contains(name, token) {
				u.Voice = &voices[i]
				return u
			}
		}
	}

	for i := range voices {
		if strings.Contains(strings.ToLower(voices[i].Name), token) {
			u.Voice = &voices[i]
			return u
		}
	}

	log.Printf("[Speech] WARNING: no voice matches option %q among %d voice(s), using %q", option, len(voices), voices[0].Name)
	u.Voice = &voices[0]
	u.Fallback = true
	return u
}

func (b *Binder) usable(voices []model.Voice) []model.Voice {
	if b.renderable == nil {
		return voices
	}
	out := voices[:0]
	for _, v := range voices {
		if b.renderable[strings.ToLower(v.Provider)] {
			out = append(out, v)
		}
	}
	return out
}
