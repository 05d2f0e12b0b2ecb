package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
	WSMessageTypePing     WSMessageType = "ping"
	WSMessageTypePong     WSMessageType = "pong"
)

// WSMessage is the minimal client/server message envelope.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

// WSProgressMessage is a progress snapshot pushed to subscribers.
type WSProgressMessage struct {
	Type            WSMessageType  `json:"type"`
	JobID           string         `json:"jobId"`
	Status          RenderStatus   `json:"status"`
	ProgressPercent int            `json:"progressPercent"`
	Steps           []StepProgress `json:"steps,omitempty"`
}

// WSCompleteMessage announces a finished job with its output.
type WSCompleteMessage struct {
	Type      WSMessageType `json:"type"`
	JobID     string        `json:"jobId"`
	OutputURL string        `json:"outputUrl"`
}

// WSError is the error payload of a WSErrorMessage.
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSErrorMessage announces a failed job.
type WSErrorMessage struct {
	Type  WSMessageType `json:"type"`
	JobID string        `json:"jobId"`
	Error WSError       `json:"error"`
}
