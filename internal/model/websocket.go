package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeClip     = "clip"
	WSMessageTypeComplete = "complete"
	WSMessageTypeSnapshot = "snapshot"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type            string   `json:"type"`
	RunID           string   `json:"runId"`
	Phase           RunPhase `json:"phase"`
	ProgressMessage string   `json:"progressMessage"`
	SceneIndex      int      `json:"sceneIndex"`
	SceneCount      int      `json:"sceneCount"`
}

// WSClipMessage announces a newly completed clip
type WSClipMessage struct {
	Type  string `json:"type"`
	RunID string `json:"runId"`
	Clip  Clip   `json:"clip"`
}

// WSCompleteMessage represents run completion
type WSCompleteMessage struct {
	Type   string `json:"type"`
	RunID  string `json:"runId"`
	Result Run    `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	RunID string  `json:"runId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
