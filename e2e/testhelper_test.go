package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/client"
	"github.com/scenereel/api/internal/handler"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/media"
	"github.com/scenereel/api/internal/middleware"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/pipeline"
	"github.com/scenereel/api/internal/service"
	"github.com/scenereel/api/internal/speech"
	"github.com/scenereel/api/internal/store"
	"github.com/scenereel/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	runs    *store.MemoryRunStore
	media   *media.Store
	voices  *speech.Catalog
	session string
}

// sentenceSegmenter splits a script on periods
type sentenceSegmenter struct{}

func (sentenceSegmenter) SplitScenes(ctx context.Context, script string) ([]model.Scene, error) {
	if strings.Contains(script, "QUOTA") {
		return nil, apperr.Quota(apperr.StageAnalysis, errors.New("RESOURCE_EXHAUSTED"))
	}
	var scenes []model.Scene
	for _, s := range strings.Split(script, ".") {
		if s = strings.TrimSpace(s); s != "" {
			scenes = append(scenes, model.Scene{Description: s})
		}
	}
	if len(scenes) == 0 {
		return nil, apperr.Wrap(apperr.KindSegmentation, "no scenes", apperr.ErrNoScenes)
	}
	return scenes, nil
}

// fakeVideos returns a tiny clip per prompt and fails on scenes mentioning a
// storm with a download error.
type fakeVideos struct{}

func (fakeVideos) GenerateVideo(ctx context.Context, prompt string) (*client.VideoAsset, error) {
	if strings.Contains(prompt, "storm") {
		return nil, apperr.Download(http.StatusNotFound)
	}
	return &client.VideoAsset{Data: []byte("mp4:" + prompt), ContentType: "video/mp4"}, nil
}

// blockingVideos holds every scene until its context ends.
type blockingVideos struct{}

func (blockingVideos) GenerateVideo(ctx context.Context, prompt string) (*client.VideoAsset, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type echoSynth struct{}

func (echoSynth) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	return []byte(voiceID + ":" + text), nil
}

// inlineQueue runs every enqueued task on the worker in a goroutine and
// honors CancelProcessing by canceling the task context.
type inlineQueue struct {
	worker *worker.GenerationWorker

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func (q *inlineQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var payload service.GenerationTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.mu.Lock()
	q.cancels[payload.RunID] = cancel
	q.mu.Unlock()

	go func() {
		defer cancel()
		_ = q.worker.ProcessTask(ctx, task)
	}()
	return &asynq.TaskInfo{ID: payload.RunID, Queue: service.QueueGeneration}, nil
}

func (q *inlineQueue) CancelProcessing(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cancel, ok := q.cancels[id]; ok {
		cancel()
	}
	return nil
}

func (q *inlineQueue) DeleteTask(queue, id string) error {
	return nil
}

// setupApp creates a Fiber app wired like main.go, with in-memory state and
// fake model backends. The rate limiter is left out since it needs Redis.
func setupApp(t *testing.T, videos pipeline.VideoGenerator) *testApp {
	t.Helper()
	return setupAppWithSynth(t, videos, echoSynth{})
}

// setupAppWithSynth is setupApp with a chosen narration synthesizer; a nil
// synth leaves narration to the client.
func setupAppWithSynth(t *testing.T, videos pipeline.VideoGenerator, synth speech.Synthesizer) *testApp {
	t.Helper()

	if videos == nil {
		videos = fakeVideos{}
	}

	validate := validator.New()
	messages := i18n.NewCatalog("en")

	runs := store.NewMemoryRunStore()
	mediaStore := media.NewStore()

	voiceCatalog := speech.NewCatalog()
	voiceCatalog.Replace([]model.Voice{
		{ID: "v2", Name: "Google US English Male", Language: "en-US"},
		{ID: "v1", Name: "Google UK English Female", Language: "en-GB"},
	})
	binder := speech.NewBinder(voiceCatalog, "google")
	player := speech.NewPlayer(synth)

	orchestrator := pipeline.NewOrchestrator(sentenceSegmenter{}, videos, binder, mediaStore)
	queue := &inlineQueue{cancels: make(map[string]context.CancelFunc)}
	queue.worker = worker.NewGenerationWorker(runs, orchestrator, nopHub{}, messages)

	generationService := service.NewGenerationService(runs, queue, queue, mediaStore, messages, time.Minute)
	narrationService := service.NewNarrationService(runs, binder, player)

	generationHandler := handler.NewGenerationHandler(generationService, validate, messages)
	narrationHandler := handler.NewNarrationHandler(narrationService, messages)
	mediaHandler := handler.NewMediaHandler(mediaStore)
	optionsHandler := handler.NewOptionsHandler(messages, voiceCatalog)

	app := fiber.New()
	app.Use(middleware.Session())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"gemini":     true,
				"veo":        true,
				"elevenlabs": false,
				"voices":     voiceCatalog.Populated(),
			},
		})
	})
	app.Get("/media/:handle", mediaHandler.Get)

	api := app.Group("/api")
	api.Get("/options", optionsHandler.Options)
	api.Get("/voices", optionsHandler.Voices)
	api.Get("/session/run", generationHandler.Current)
	api.Delete("/narration", narrationHandler.Cancel)

	r := api.Group("/runs")
	r.Post("/", generationHandler.Start)
	r.Get("/:runId", generationHandler.Get)
	r.Get("/:runId/preview", generationHandler.Preview)
	r.Post("/:runId/cancel", generationHandler.Cancel)
	r.Delete("/:runId", generationHandler.Discard)
	r.Post("/:runId/clips/:index/narration", narrationHandler.Speak)

	return &testApp{
		app:     app,
		runs:    runs,
		media:   mediaStore,
		voices:  voiceCatalog,
		session: uuid.New().String(),
	}
}

type nopHub struct{}

func (nopHub) BroadcastProgress(run model.Run)                   {}
func (nopHub) BroadcastClip(runID string, clip model.Clip)       {}
func (nopHub) BroadcastComplete(run model.Run)                   {}
func (nopHub) BroadcastError(runID string, code, message string) {}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doSessionRequest performs a request within the test app's session.
func (ta *testApp) doSessionRequest(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, method, path, body, map[string]string{
		middleware.SessionHeader: ta.session,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// startRun posts a script and returns the new run ID.
func (ta *testApp) startRun(t *testing.T, body string) string {
	t.Helper()
	resp := ta.doSessionRequest(t, http.MethodPost, "/api/runs", body)
	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	runID, _ := result["runId"].(string)
	if runID == "" {
		t.Fatalf("expected runId in response, got %v", result)
	}
	return runID
}

// waitForRun polls the run until it stops loading.
func (ta *testApp) waitForRun(t *testing.T, runID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := ta.doSessionRequest(t, http.MethodGet, "/api/runs/"+runID, "")
		result := parseJSON(t, resp)
		if loading, _ := result["isLoading"].(bool); !loading {
			return result
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s still loading after deadline", runID)
	return nil
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}
