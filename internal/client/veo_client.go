package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scenereel/api/internal/apperr"
	"github.com/scenereel/api/internal/config"
)

// VideoGenerator turns a prompt into a single downloaded video
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string) (*VideoAsset, error)
}

// VeoClient implements VideoGenerator for the Veo long-running video API
type VeoClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	pollInterval time.Duration
}

// VideoAsset is a downloaded clip
type VideoAsset struct {
	Data        []byte
	ContentType string
	SourceURI   string
}

// VideoOperation is the long-running operation returned by the video API
type VideoOperation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *GenerateVideoResp `json:"response,omitempty"`
}

// OperationError is the failure attached to a finished operation
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// GenerateVideoResp holds the generated samples of a finished operation
type GenerateVideoResp struct {
	GenerateVideoResponse struct {
		GeneratedSamples []GeneratedSample `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// GeneratedSample is one generated video
type GeneratedSample struct {
	Video struct {
		URI string `json:"uri"`
	} `json:"video"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

// StatusError is a non-2xx answer from the video API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("veo API error (status %d): %s", e.StatusCode, e.Body)
}

// NewVeoClient creates a new Veo API client
func NewVeoClient(cfg *config.GeminiConfig) *VeoClient {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &VeoClient{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.VideoModel,
		pollInterval: interval,
	}
}

// SetPollInterval overrides the wait between status checks
func (c *VeoClient) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}

// GenerateVideo starts a generation, waits for it and downloads the single
// produced video.
func (c *VeoClient) GenerateVideo(ctx context.Context, prompt string) (*VideoAsset, error) {
	op, err := c.StartGeneration(ctx, prompt)
	if err != nil {
		if isQuotaError(err) {
			return nil, apperr.Quota(apperr.StageGeneration, err)
		}
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindCanceled, "video generation canceled", ctx.Err())
		}
		return nil, apperr.Synthesis(prompt, err)
	}

	op, err = c.PollOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	if op.Error != nil {
		opErr := fmt.Errorf("operation failed: %s", op.Error.Message)
		if op.Error.Code == http.StatusTooManyRequests || apperr.IsQuotaSignal(op.Error.Status+" "+op.Error.Message) {
			return nil, apperr.Quota(apperr.StageGeneration, opErr)
		}
		return nil, apperr.Synthesis(prompt, opErr)
	}

	uri := op.VideoURI()
	if uri == "" {
		return nil, apperr.New(apperr.KindMissingAsset, "video generation completed without a download link")
	}

	return c.Download(ctx, uri)
}

// StartGeneration submits a prompt and returns the pending operation
func (c *VeoClient) StartGeneration(ctx context.Context, prompt string) (*VideoOperation, error) {
	req := predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	}
	endpoint := fmt.Sprintf("/v1beta/models/%s:predictLongRunning", c.model)

	var op VideoOperation
	if err := c.post(ctx, endpoint, req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetOperation retrieves the current state of an operation
func (c *VeoClient) GetOperation(ctx context.Context, name string) (*VideoOperation, error) {
	var op VideoOperation
	if err := c.get(ctx, "/v1beta/"+name, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// PollOperation waits until the operation reports done. There is no upper
// bound on the number of checks; cancellation comes through ctx.
func (c *VeoClient) PollOperation(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	attempt := 0

	for !op.Done {
		select {
		case <-ctx.Done():
			log.Printf("[Veo API] Poll (op=%s) — context cancelled", op.Name)
			return nil, apperr.Wrap(apperr.KindCanceled, "video generation canceled", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		attempt++
		next, err := c.GetOperation(ctx, op.Name)
		if err != nil {
			log.Printf("[Veo API] Poll #%d (op=%s) — error: %v", attempt, op.Name, err)
			if isQuotaError(err) {
				return nil, apperr.Quota(apperr.StageGeneration, err)
			}
			if ctx.Err() != nil {
				return nil, apperr.Wrap(apperr.KindCanceled, "video generation canceled", ctx.Err())
			}
			return nil, apperr.Wrap(apperr.KindPollingFailed, "failed to check video generation status", err)
		}

		log.Printf("[Veo API] Poll #%d (op=%s) — done: %v", attempt, op.Name, next.Done)
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
	}

	return op, nil
}

// Download fetches the generated video. The API key is attached as the key
// query parameter, which the file endpoint requires.
func (c *VeoClient) Download(ctx context.Context, uri string) (*VideoAsset, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMissingAsset, "invalid download link", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMissingAsset, "invalid download link", err)
	}

	log.Printf("[Veo API] → GET %s (download)", uri)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Veo API] ✗ download failed: %v", err)
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindCanceled, "video download canceled", ctx.Err())
		}
		return nil, apperr.Wrap(apperr.KindDownload, "video download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Veo API] ← %d download", resp.StatusCode)
		return nil, apperr.Download(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDownload, "failed to read video", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "video/mp4"
	}

	log.Printf("[Veo API] ← %d download (%d bytes)", resp.StatusCode, len(data))

	return &VideoAsset{
		Data:        data,
		ContentType: contentType,
		SourceURI:   uri,
	}, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *VeoClient) IsConfigured() bool {
	return c.apiKey != ""
}

// VideoURI returns the link of the first generated sample, if any
func (op *VideoOperation) VideoURI() string {
	if op.Response == nil {
		return ""
	}
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

// post sends a POST request with JSON body
func (c *VeoClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *VeoClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *VeoClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	log.Printf("[Veo API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Veo API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Veo API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Veo API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Veo API] ✗ unmarshal error for %s %s: %v (body: %s)", req.Method, req.URL.String(), err, string(respBody))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func isQuotaError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return apperr.IsQuotaSignal(err.Error())
}
