package model

import "time"

// Scene is one visual/narrative beat of a script.
type Scene struct {
	Description string `json:"scene"`
}

// Voice providers. Browser voices are spoken by the client, ElevenLabs
// voices are rendered server-side.
const (
	VoiceProviderBrowser    = "browser"
	VoiceProviderElevenLabs = "elevenlabs"
)

// Voice is an entry of the speech voice catalog.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Utterance is narration text bound to an optional voice. A nil Voice means
// the speech backend's default voice.
type Utterance struct {
	Text     string `json:"text"`
	Voice    *Voice `json:"voice,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Clip is a completed scene: its text, the media handle of the synthesized
// video and the bound narration.
type Clip struct {
	Index       int       `json:"index"`
	SceneText   string    `json:"sceneText"`
	MediaHandle string    `json:"mediaHandle"`
	MediaURL    string    `json:"mediaUrl"`
	Narration   Utterance `json:"narration"`
}

// RunError is the user-facing error of a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is the observable state of one generation run.
type Run struct {
	ID              string      `json:"runId"`
	SessionID       string      `json:"sessionId"`
	Phase           RunPhase    `json:"phase"`
	IsLoading       bool        `json:"isLoading"`
	ProgressMessage string      `json:"progressMessage"`
	SceneIndex      int         `json:"sceneIndex"`
	SceneCount      int         `json:"sceneCount"`
	Clips           []Clip      `json:"clips"`
	Error           *RunError   `json:"error"`
	Voice           VoiceOption `json:"voice"`
	Style           VideoStyle  `json:"style"`
	Mood            MusicMood   `json:"musicMood"`
	Language        Language    `json:"language"`
	Script          string      `json:"script"`
	CreatedAt       time.Time   `json:"createdAt"`
	StartedAt       *time.Time  `json:"startedAt,omitempty"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
}

// Snapshot returns a copy that shares nothing mutable with r.
func (r *Run) Snapshot() Run {
	cp := *r
	cp.Clips = make([]Clip, len(r.Clips))
	copy(cp.Clips, r.Clips)
	if r.Error != nil {
		e := *r.Error
		cp.Error = &e
	}
	return cp
}

// GenerateRequest begins a run.
type GenerateRequest struct {
	Script   string      `json:"script" validate:"required"`
	Voice    VoiceOption `json:"voice" validate:"omitempty,oneof=male female"`
	Style    VideoStyle  `json:"style" validate:"omitempty,oneof=realistic animated cinematic storytelling educational"`
	Mood     MusicMood   `json:"musicMood" validate:"omitempty,oneof=happy calm suspenseful epic sad"`
	Language Language    `json:"language" validate:"omitempty,oneof=en id"`
}

// GenerateResponse is returned when a run is accepted.
type GenerateResponse struct {
	RunID           string    `json:"runId"`
	SessionID       string    `json:"sessionId"`
	Phase           RunPhase  `json:"phase"`
	IsLoading       bool      `json:"isLoading"`
	ProgressMessage string    `json:"progressMessage"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PreviewResponse mirrors the preview panel: the selected clip, the
// thumbnail strip and the mood label.
type PreviewResponse struct {
	RunID      string      `json:"runId"`
	Current    *Clip       `json:"current"`
	Position   int         `json:"position"`
	Total      int         `json:"total"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Mood       MusicMood   `json:"musicMood"`
	IsLoading  bool        `json:"isLoading"`
}

// Thumbnail is one entry of the preview strip.
type Thumbnail struct {
	Index        int    `json:"index"`
	MediaHandle  string `json:"mediaHandle"`
	MediaURL     string `json:"mediaUrl"`
	DownloadName string `json:"downloadName"`
	Selected     bool   `json:"selected"`
}

// CancelResponse is returned when a run is canceled.
type CancelResponse struct {
	Success bool     `json:"success"`
	RunID   string   `json:"runId"`
	Phase   RunPhase `json:"phase"`
}
