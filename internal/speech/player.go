package speech

import (
	"context"
	"log"
	"sync"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/model"
)

// Synthesizer renders text with a voice; an empty voiceID means the default voice
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// Player allows a single utterance in flight. Starting a new one cancels
// whatever is currently being spoken.
type Player struct {
	synth Synthesizer

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

func NewPlayer(synth Synthesizer) *Player {
	return &Player{synth: synth}
}

// Renders reports whether utterances are rendered to audio server-side. When
// false the caller speaks them itself with a browser voice.
func (p *Player) Renders() bool {
	return p.synth != nil
}

// Speak renders u to audio
func (p *Player) Speak(ctx context.Context, u model.Utterance) ([]byte, error) {
	if p.synth == nil {
		return nil, apperr.New(apperr.KindUnavailable, "speech synthesis is not configured")
	}

	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.seq++
	mine := p.seq
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.seq == mine {
			p.cancel = nil
		}
		p.mu.Unlock()
		cancel()
	}()

	voiceID := ""
	if u.Voice != nil {
		voiceID = u.Voice.ID
	}

	audio, err := p.synth.Synthesize(ctx, voiceID, u.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindCanceled, "narration canceled", ctx.Err())
		}
		log.Printf("[Speech] playback failed: %v", err)
		return nil, apperr.Wrap(apperr.KindPlayback, "narration playback failed", err)
	}
	return audio, nil
}

// Cancel stops the utterance in flight, if any
func (p *Player) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return false
	}
	p.cancel()
	p.cancel = nil
	return true
}
