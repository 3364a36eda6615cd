package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/pipeline"
	"github.com/scenereel/api/internal/service"
	"github.com/scenereel/api/internal/store"
)

// Broadcaster pushes run events to live subscribers
type Broadcaster interface {
	BroadcastProgress(run model.Run)
	BroadcastClip(runID string, clip model.Clip)
	BroadcastComplete(run model.Run)
	BroadcastError(runID string, code, message string)
}

// Runner executes one run
type Runner interface {
	Run(ctx context.Context, run *model.Run, msgs pipeline.Messages, obs pipeline.Observer) error
}

// GenerationWorker processes generation runs
type GenerationWorker struct {
	runs     store.RunStore
	runner   Runner
	hub      Broadcaster
	messages *i18n.Catalog
}

// NewGenerationWorker creates a new generation worker
func NewGenerationWorker(runs store.RunStore, runner Runner, hub Broadcaster, messages *i18n.Catalog) *GenerationWorker {
	return &GenerationWorker{
		runs:     runs,
		runner:   runner,
		hub:      hub,
		messages: messages,
	}
}

// ProcessTask handles generation task processing. Failures are recorded on
// the run and never retried.
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.GenerationTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	runID := payload.RunID
	run, err := w.runs.Get(ctx, runID)
	if err != nil {
		log.Printf("[Worker] run %s not found: %v", runID, err)
		return fmt.Errorf("run %s: %v: %w", runID, err, asynq.SkipRetry)
	}

	if run.Phase.Terminal() {
		log.Printf("[Worker] run %s already %s, skipping", runID, run.Phase)
		return nil
	}

	log.Printf("[Worker] starting run %s", runID)

	msgs := w.messages.For(string(run.Language))
	err = w.runner.Run(ctx, run, msgs, pipeline.ObserverFunc(w.publish))
	if err != nil {
		if errors.Is(err, apperr.ErrCanceled) {
			log.Printf("[Worker] run %s canceled", runID)
			return nil
		}
		log.Printf("[Worker] run %s failed: %v", runID, err)
		return fmt.Errorf("run %s failed: %v: %w", runID, err, asynq.SkipRetry)
	}

	log.Printf("[Worker] run %s completed with %d clip(s)", runID, len(run.Clips))
	return nil
}

// publish persists the snapshot and then notifies subscribers. It runs on a
// detached context so the final state is stored even after cancellation.
func (w *GenerationWorker) publish(e pipeline.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := e.Run
	if err := w.runs.Save(ctx, &run); err != nil {
		log.Printf("[Worker] failed to save run %s: %v", run.ID, err)
	}

	switch e.Type {
	case pipeline.EventProgress, pipeline.EventCanceled:
		w.hub.BroadcastProgress(run)
	case pipeline.EventClip:
		if e.Clip != nil {
			w.hub.BroadcastClip(run.ID, *e.Clip)
		}
	case pipeline.EventComplete:
		w.hub.BroadcastComplete(run)
	case pipeline.EventError:
		if run.Error != nil {
			w.hub.BroadcastError(run.ID, run.Error.Code, run.Error.Message)
		}
	}
}
