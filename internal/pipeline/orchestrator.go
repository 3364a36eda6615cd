// Package pipeline runs a script through scene analysis, per-scene video
// synthesis and narration binding, publishing the run state after every
// transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/client"
	"github.com/scenereel/api/internal/model"
)

// Segmenter splits a script into scenes
type Segmenter interface {
	SplitScenes(ctx context.Context, script string) ([]model.Scene, error)
}

// VideoGenerator synthesizes one clip per prompt
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string) (*client.VideoAsset, error)
}

// NarrationBinder binds scene text to a voice
type NarrationBinder interface {
	Bind(text string, option model.VoiceOption) model.Utterance
}

// MediaStore keeps clip bytes and hands out handles
type MediaStore interface {
	Put(runID string, index int, data []byte, contentType string) (string, error)
}

// Messages renders user-facing progress and error text
type Messages interface {
	Analyzing() string
	GeneratingScene(index, total int) string
	Ready() string
	Canceled() string
	ErrorMessage(err error) string
}

type EventType string

const (
	EventProgress EventType = "progress"
	EventClip     EventType = "clip"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
	EventCanceled EventType = "canceled"
)

// Event is published after every state transition. Run is a snapshot.
type Event struct {
	Type EventType
	Run  model.Run
	Clip *model.Clip
	Err  error
}

// Observer receives events in order, synchronously
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type Orchestrator struct {
	segmenter Segmenter
	videos    VideoGenerator
	binder    NarrationBinder
	media     MediaStore
	mediaPath string
}

func NewOrchestrator(segmenter Segmenter, videos VideoGenerator, binder NarrationBinder, media MediaStore) *Orchestrator {
	return &Orchestrator{
		segmenter: segmenter,
		videos:    videos,
		binder:    binder,
		media:     media,
		mediaPath: "/media/",
	}
}

// Prompt builds the synthesis prompt of a scene
func Prompt(style model.VideoStyle, scene string) string {
	return fmt.Sprintf("A %s video of: %s", style, scene)
}

// Run drives run from analysis to ready. Scenes are synthesized strictly one
// after another and clip i is published before scene i+1 starts. On failure
// the clips produced so far are kept and the error is returned.
func (o *Orchestrator) Run(ctx context.Context, run *model.Run, msgs Messages, obs Observer) error {
	if obs == nil {
		obs = ObserverFunc(func(Event) {})
	}

	if strings.TrimSpace(run.Script) == "" {
		err := apperr.New(apperr.KindValidation, "script is empty")
		run.Phase = model.PhaseIdle
		run.IsLoading = false
		run.Error = &model.RunError{Code: string(apperr.KindValidation), Message: msgs.ErrorMessage(err)}
		obs.Observe(Event{Type: EventError, Run: run.Snapshot(), Err: err})
		return err
	}

	started := time.Now().UTC()
	run.StartedAt = &started
	run.CompletedAt = nil
	run.Clips = []model.Clip{}
	run.Error = nil
	run.SceneIndex = 0
	run.SceneCount = 0

	o.progress(run, model.PhaseAnalyzing, msgs.Analyzing(), obs)
	log.Printf("[Pipeline] run %s: analyzing script (%d chars)", run.ID, len(run.Script))

	if ctx.Err() != nil {
		return o.cancel(run, msgs, obs, ctx.Err())
	}

	scenes, err := o.segmenter.SplitScenes(ctx, run.Script)
	if err != nil {
		if isCanceled(ctx, err) {
			return o.cancel(run, msgs, obs, err)
		}
		return o.fail(run, msgs, obs, err)
	}
	if len(scenes) == 0 {
		return o.fail(run, msgs, obs, apperr.Wrap(apperr.KindSegmentation, "no scenes", apperr.ErrNoScenes))
	}

	run.SceneCount = len(scenes)
	log.Printf("[Pipeline] run %s: %d scene(s)", run.ID, len(scenes))

	for i, scene := range scenes {
		if ctx.Err() != nil {
			return o.cancel(run, msgs, obs, ctx.Err())
		}

		run.SceneIndex = i + 1
		o.progress(run, model.PhaseGenerating, msgs.GeneratingScene(i+1, len(scenes)), obs)

		prompt := Prompt(run.Style, scene.Description)
		asset, err := o.videos.GenerateVideo(ctx, prompt)
		if err != nil {
			if isCanceled(ctx, err) {
				return o.cancel(run, msgs, obs, err)
			}
			log.Printf("[Pipeline] run %s: scene %d of %d failed: %v", run.ID, i+1, len(scenes), err)
			return o.fail(run, msgs, obs, err)
		}

		handle, err := o.media.Put(run.ID, i, asset.Data, asset.ContentType)
		if err != nil {
			// The run was discarded while this scene was generating
			return o.cancel(run, msgs, obs, apperr.Wrap(apperr.KindCanceled, "run released", err))
		}
		clip := model.Clip{
			Index:       i,
			SceneText:   scene.Description,
			MediaHandle: handle,
			MediaURL:    o.mediaPath + handle,
			Narration:   o.binder.Bind(scene.Description, run.Voice),
		}
		run.Clips = append(run.Clips, clip)
		obs.Observe(Event{Type: EventClip, Run: run.Snapshot(), Clip: &clip})
		log.Printf("[Pipeline] run %s: scene %d of %d ready", run.ID, i+1, len(scenes))
	}

	completed := time.Now().UTC()
	run.Phase = model.PhaseReady
	run.IsLoading = false
	run.ProgressMessage = msgs.Ready()
	run.CompletedAt = &completed
	obs.Observe(Event{Type: EventComplete, Run: run.Snapshot()})
	log.Printf("[Pipeline] run %s: ready with %d clip(s)", run.ID, len(run.Clips))

	return nil
}

func (o *Orchestrator) progress(run *model.Run, phase model.RunPhase, msg string, obs Observer) {
	run.Phase = phase
	run.IsLoading = true
	run.ProgressMessage = msg
	obs.Observe(Event{Type: EventProgress, Run: run.Snapshot()})
}

func (o *Orchestrator) fail(run *model.Run, msgs Messages, obs Observer, err error) error {
	code := string(apperr.KindOf(err))
	if code == "" {
		code = "unexpected"
	}

	completed := time.Now().UTC()
	run.Phase = model.PhaseErrored
	run.IsLoading = false
	run.ProgressMessage = ""
	run.CompletedAt = &completed
	run.Error = &model.RunError{Code: code, Message: msgs.ErrorMessage(err)}
	obs.Observe(Event{Type: EventError, Run: run.Snapshot(), Err: err})
	log.Printf("[Pipeline] run %s: errored (%s) with %d clip(s) kept: %v", run.ID, code, len(run.Clips), err)

	return err
}

func (o *Orchestrator) cancel(run *model.Run, msgs Messages, obs Observer, cause error) error {
	completed := time.Now().UTC()
	run.Phase = model.PhaseCanceled
	run.IsLoading = false
	run.ProgressMessage = msgs.Canceled()
	run.CompletedAt = &completed
	obs.Observe(Event{Type: EventCanceled, Run: run.Snapshot()})
	log.Printf("[Pipeline] run %s: canceled with %d clip(s) kept", run.ID, len(run.Clips))

	if apperr.KindOf(cause) == apperr.KindCanceled {
		return cause
	}
	return apperr.Wrap(apperr.KindCanceled, "run canceled", cause)
}

func isCanceled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, apperr.ErrCanceled) || errors.Is(err, context.Canceled)
}
