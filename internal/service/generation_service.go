package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/media"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/store"
)

const (
	TaskTypeGeneration = "generation:run"
	QueueGeneration    = "generation"
)

// Enqueuer is the part of *asynq.Client the service needs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskCanceler is the part of *asynq.Inspector the service needs
type TaskCanceler interface {
	CancelProcessing(id string) error
	DeleteTask(queue, id string) error
}

// MediaReleaser drops the clips of a run
type MediaReleaser interface {
	ReleaseRun(runID string) int
}

// GenerationService starts, inspects, cancels and discards runs
type GenerationService struct {
	runs       store.RunStore
	queue      Enqueuer
	tasks      TaskCanceler
	media      MediaReleaser
	messages   *i18n.Catalog
	runTimeout time.Duration
}

func NewGenerationService(runs store.RunStore, queue Enqueuer, tasks TaskCanceler, mediaStore MediaReleaser, messages *i18n.Catalog, runTimeout time.Duration) *GenerationService {
	return &GenerationService{
		runs:       runs,
		queue:      queue,
		tasks:      tasks,
		media:      mediaStore,
		messages:   messages,
		runTimeout: runTimeout,
	}
}

// StartRun validates the request, supersedes the session's previous run and
// queues the new one. A session whose current run is still loading is refused.
func (s *GenerationService) StartRun(ctx context.Context, sessionID string, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, apperr.New(apperr.KindValidation, "script is empty")
	}

	if priorID, err := s.runs.SessionRun(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	} else if priorID != "" {
		prior, err := s.runs.Get(ctx, priorID)
		if err == nil && prior.IsLoading {
			return nil, apperr.New(apperr.KindRunInProgress, "a run is already in progress for this session")
		}
		s.release(ctx, priorID)
	}

	applyDefaults(req)
	msgs := s.messages.For(string(req.Language))
	now := time.Now().UTC()

	run := &model.Run{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		Phase:           model.PhaseAnalyzing,
		IsLoading:       true,
		ProgressMessage: msgs.Analyzing(),
		Clips:           []model.Clip{},
		Voice:           req.Voice,
		Style:           req.Style,
		Mood:            req.Mood,
		Language:        req.Language,
		Script:          req.Script,
		CreatedAt:       now,
	}

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	if err := s.runs.SetSessionRun(ctx, sessionID, run.ID); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	task, err := newGenerationTask(run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.queue.Enqueue(task,
		asynq.Queue(QueueGeneration),
		asynq.TaskID(run.ID),
		asynq.MaxRetry(0),
		asynq.Timeout(s.runTimeout),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		run.Phase = model.PhaseErrored
		run.IsLoading = false
		run.ProgressMessage = ""
		run.Error = &model.RunError{Code: "unexpected", Message: msgs.ErrorMessage(err)}
		_ = s.runs.Save(ctx, run)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Printf("[Generation] run %s queued for session %s", run.ID, sessionID)

	return &model.GenerateResponse{
		RunID:           run.ID,
		SessionID:       sessionID,
		Phase:           run.Phase,
		IsLoading:       run.IsLoading,
		ProgressMessage: run.ProgressMessage,
		CreatedAt:       run.CreatedAt,
	}, nil
}

// GetRun returns the current state of a run
func (s *GenerationService) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	return s.runs.Get(ctx, runID)
}

// SessionRun returns the current run of a session
func (s *GenerationService) SessionRun(ctx context.Context, sessionID string) (*model.Run, error) {
	runID, err := s.runs.SessionRun(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, apperr.New(apperr.KindNotFound, "no run for this session")
	}
	return s.runs.Get(ctx, runID)
}

// Preview returns the clip at index together with the thumbnail strip. The
// selected clip and its thumbnail always carry the same media handle.
func (s *GenerationService) Preview(ctx context.Context, runID string, index int) (*model.PreviewResponse, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	resp := &model.PreviewResponse{
		RunID:      run.ID,
		Total:      len(run.Clips),
		Thumbnails: make([]model.Thumbnail, 0, len(run.Clips)),
		Mood:       run.Mood,
		IsLoading:  run.IsLoading,
	}
	if len(run.Clips) == 0 {
		return resp, nil
	}
	if index < 0 || index >= len(run.Clips) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("clip index %d out of range", index))
	}

	current := run.Clips[index]
	resp.Current = &current
	resp.Position = index + 1
	for i, c := range run.Clips {
		resp.Thumbnails = append(resp.Thumbnails, model.Thumbnail{
			Index:        c.Index,
			MediaHandle:  c.MediaHandle,
			MediaURL:     c.MediaURL,
			DownloadName: media.DownloadName(c.Index),
			Selected:     i == index,
		})
	}
	return resp, nil
}

// Cancel stops a loading run. The worker observes the cancellation between
// scenes and at every poll, so clips produced so far are kept.
func (s *GenerationService) Cancel(ctx context.Context, runID string) (*model.CancelResponse, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Phase.Terminal() {
		return &model.CancelResponse{Success: false, RunID: run.ID, Phase: run.Phase}, nil
	}

	if err := s.tasks.CancelProcessing(runID); err != nil {
		log.Printf("[Generation] cancel signal for run %s failed: %v", runID, err)
	}
	// A task that has not started yet is removed from the queue; the
	// worker also skips runs already marked terminal.
	if err := s.tasks.DeleteTask(QueueGeneration, runID); err != nil {
		log.Printf("[Generation] run %s not pending: %v", runID, err)
	}

	now := time.Now().UTC()
	run.Phase = model.PhaseCanceled
	run.IsLoading = false
	run.ProgressMessage = s.messages.For(string(run.Language)).Canceled()
	run.CompletedAt = &now
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	log.Printf("[Generation] run %s canceled", runID)
	return &model.CancelResponse{Success: true, RunID: run.ID, Phase: run.Phase}, nil
}

// Discard cancels the run if needed, releases its media and forgets it
func (s *GenerationService) Discard(ctx context.Context, runID string) error {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run.IsLoading {
		if _, err := s.Cancel(ctx, runID); err != nil {
			return err
		}
	}

	s.release(ctx, runID)
	if err := s.runs.ClearSessionRun(ctx, run.SessionID, runID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *GenerationService) release(ctx context.Context, runID string) {
	s.media.ReleaseRun(runID)
	if err := s.runs.Delete(ctx, runID); err != nil {
		log.Printf("[Generation] failed to delete run %s: %v", runID, err)
	}
}

func applyDefaults(req *model.GenerateRequest) {
	if req.Voice == "" {
		req.Voice = model.ValidVoiceOptions[0]
	}
	if req.Style == "" {
		req.Style = model.ValidVideoStyles[0]
	}
	if req.Mood == "" {
		req.Mood = model.ValidMusicMoods[0]
	}
}

// GenerationTaskPayload is the asynq payload of a run
type GenerationTaskPayload struct {
	RunID string `json:"runId"`
}

func newGenerationTask(runID string) (*asynq.Task, error) {
	data, err := json.Marshal(GenerationTaskPayload{RunID: runID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGeneration, data), nil
}
