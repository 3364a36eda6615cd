package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/config"
)

// fakeVeo serves the predict, operation and file endpoints of the video API
type fakeVeo struct {
	pendingPolls int32
	polls        int32
	startStatus  int
	startBody    string
	pollStatus   int
	pollBody     string
	opError      *OperationError
	noSamples    bool
	fileStatus   int
	gotKey       string
	gotPrompt    string
}

func (f *fakeVeo) server(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			if r.Header.Get("x-goog-api-key") != "test-key" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			var req predictRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if len(req.Instances) == 1 {
				f.gotPrompt = req.Instances[0].Prompt
			}
			if f.startStatus != 0 {
				w.WriteHeader(f.startStatus)
				_, _ = w.Write([]byte(f.startBody))
				return
			}
			_ = json.NewEncoder(w).Encode(VideoOperation{Name: "operations/op-1"})

		case strings.HasPrefix(r.URL.Path, "/v1beta/operations/"):
			n := atomic.AddInt32(&f.polls, 1)
			if f.pollStatus != 0 && n > f.pendingPolls {
				body := f.pollBody
				if body == "" {
					body = `{"error":{"message":"boom"}}`
				}
				w.WriteHeader(f.pollStatus)
				_, _ = w.Write([]byte(body))
				return
			}
			op := VideoOperation{Name: "operations/op-1", Done: n > f.pendingPolls}
			if op.Done {
				op.Error = f.opError
				if f.opError == nil {
					resp := &GenerateVideoResp{}
					if !f.noSamples {
						var s GeneratedSample
						s.Video.URI = srv.URL + "/files/clip.mp4?alt=media"
						resp.GenerateVideoResponse.GeneratedSamples = []GeneratedSample{s}
					}
					op.Response = resp
				}
			}
			_ = json.NewEncoder(w).Encode(op)

		case r.URL.Path == "/files/clip.mp4":
			f.gotKey = r.URL.Query().Get("key")
			if f.fileStatus != 0 {
				w.WriteHeader(f.fileStatus)
				return
			}
			w.Header().Set("Content-Type", "video/mp4")
			_, _ = w.Write([]byte("mp4-bytes"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestVeo(baseURL string) *VeoClient {
	c := NewVeoClient(&config.GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		VideoModel: "veo-2.0-generate-001",
	})
	c.SetPollInterval(time.Millisecond)
	return c
}

func TestGenerateVideo_Success(t *testing.T) {
	f := &fakeVeo{pendingPolls: 2}
	srv := f.server(t)

	asset, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "A cinematic video of: a cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(asset.Data) != "mp4-bytes" {
		t.Errorf("unexpected data %q", asset.Data)
	}
	if asset.ContentType != "video/mp4" {
		t.Errorf("unexpected content type %q", asset.ContentType)
	}
	if f.gotKey != "test-key" {
		t.Errorf("expected api key on download, got %q", f.gotKey)
	}
	if f.gotPrompt != "A cinematic video of: a cat" {
		t.Errorf("unexpected prompt %q", f.gotPrompt)
	}
	if got := atomic.LoadInt32(&f.polls); got != 3 {
		t.Errorf("expected 3 polls, got %d", got)
	}
}

func TestGenerateVideo_QuotaOnStart(t *testing.T) {
	f := &fakeVeo{startStatus: http.StatusTooManyRequests, startBody: `{"error":{"status":"RESOURCE_EXHAUSTED"}}`}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Stage != apperr.StageGeneration {
		t.Errorf("expected generation stage, got %q", e.Stage)
	}
}

func TestGenerateVideo_StartFailureIsSynthesis(t *testing.T) {
	f := &fakeVeo{startStatus: http.StatusBadRequest, startBody: `{"error":{"message":"bad prompt"}}`}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "A realistic video of: x")
	if !errors.Is(err, apperr.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Prompt != "A realistic video of: x" {
		t.Errorf("expected prompt on error, got %q", e.Prompt)
	}
}

func TestGenerateVideo_PollFailure(t *testing.T) {
	f := &fakeVeo{pendingPolls: 1, pollStatus: http.StatusInternalServerError}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
	if !errors.Is(err, apperr.ErrPollingFailed) {
		t.Fatalf("expected polling error, got %v", err)
	}
}

func TestGenerateVideo_PollQuota(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"too many requests", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`},
		{"exhausted in server error", http.StatusInternalServerError, `{"error":{"status":"RESOURCE_EXHAUSTED","message":"Resource has been exhausted"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeVeo{pendingPolls: 1, pollStatus: tc.status, pollBody: tc.body}
			srv := f.server(t)

			_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
			if !errors.Is(err, apperr.ErrQuotaExceeded) {
				t.Fatalf("expected quota error, got %v", err)
			}
			if errors.Is(err, apperr.ErrPollingFailed) {
				t.Errorf("quota error must not also be a polling error: %v", err)
			}
			e, _ := apperr.As(err)
			if e.Stage != apperr.StageGeneration {
				t.Errorf("expected generation stage, got %q", e.Stage)
			}
			if got := atomic.LoadInt32(&f.polls); got != 2 {
				t.Errorf("expected failure on the second poll, got %d polls", got)
			}
		})
	}
}

func TestGenerateVideo_MissingAsset(t *testing.T) {
	f := &fakeVeo{noSamples: true}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
	if !errors.Is(err, apperr.ErrMissingAsset) {
		t.Fatalf("expected missing asset error, got %v", err)
	}
}

func TestGenerateVideo_OperationError(t *testing.T) {
	f := &fakeVeo{opError: &OperationError{Code: 400, Message: "unsafe content"}}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
	if !errors.Is(err, apperr.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
}

func TestGenerateVideo_DownloadStatus(t *testing.T) {
	f := &fakeVeo{fileStatus: http.StatusNotFound}
	srv := f.server(t)

	_, err := newTestVeo(srv.URL).GenerateVideo(context.Background(), "p")
	if !errors.Is(err, apperr.ErrDownload) {
		t.Fatalf("expected download error, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", e.Status)
	}
}

func TestPollOperation_Canceled(t *testing.T) {
	f := &fakeVeo{pendingPolls: 1 << 20}
	srv := f.server(t)
	c := newTestVeo(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.PollOperation(ctx, &VideoOperation{Name: "operations/op-1"})
	if !errors.Is(err, apperr.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
}
