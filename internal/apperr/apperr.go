// Package apperr defines the error taxonomy shared by the generation
// pipeline, the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindSegmentation  Kind = "segmentation"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindPollingFailed Kind = "polling_failed"
	KindMissingAsset  Kind = "missing_asset"
	KindDownload      Kind = "download_failed"
	KindSynthesis     Kind = "synthesis_failed"
	KindPlayback      Kind = "playback_failed"
	KindNotFound      Kind = "not_found"
	KindRunInProgress Kind = "run_in_progress"
	KindCanceled      Kind = "canceled"
	KindUnavailable   Kind = "unavailable"
)

// Stage tells which pipeline step produced a quota error, so the user-facing
// message can name it.
type Stage string

const (
	StageAnalysis   Stage = "analysis"
	StageGeneration Stage = "generation"
)

// Error is the error type returned across package boundaries.
type Error struct {
	Kind   Kind
	Stage  Stage
	Status int    // HTTP status of a failed download
	Prompt string // prompt of a failed synthesis
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so that errors.Is(err, apperr.ErrQuotaExceeded) works for
// any quota error regardless of stage or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrSegmentation  = &Error{Kind: KindSegmentation}
	ErrQuotaExceeded = &Error{Kind: KindQuotaExceeded}
	ErrPollingFailed = &Error{Kind: KindPollingFailed}
	ErrMissingAsset  = &Error{Kind: KindMissingAsset}
	ErrDownload      = &Error{Kind: KindDownload}
	ErrSynthesis     = &Error{Kind: KindSynthesis}
	ErrPlayback      = &Error{Kind: KindPlayback}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrRunInProgress = &Error{Kind: KindRunInProgress}
	ErrCanceled      = &Error{Kind: KindCanceled}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

// ErrNoScenes is the cause of a segmentation error for a script that produced
// an empty scene list.
var ErrNoScenes = errors.New("script produced no scenes")

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Quota builds a quota error for a pipeline stage.
func Quota(stage Stage, err error) *Error {
	return &Error{Kind: KindQuotaExceeded, Stage: stage, Msg: "quota exceeded", Err: err}
}

// Download builds a download error carrying the transport status.
func Download(status int) *Error {
	return &Error{Kind: KindDownload, Status: status, Msg: fmt.Sprintf("download failed with status %d", status)}
}

// Synthesis builds the catch-all error of a scene.
func Synthesis(prompt string, err error) *Error {
	return &Error{Kind: KindSynthesis, Prompt: prompt, Msg: "video synthesis failed", Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns err as *Error when possible.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

var quotaSignals = []string{
	"resource_exhausted",
	"resource has been exhausted",
	"quota exceeded",
}

// IsQuotaSignal reports whether an error text carries a known
// resource-exhaustion signal.
func IsQuotaSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range quotaSignals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
