package entity

import "time"

// Completion is a single answer produced by an LLM provider.
type Completion struct {
	Content    string         `json:"content"`
	Model      string         `json:"model"` // Which model actually answered?
	TokenCount int            `json:"token_count"`
	Latency    time.Duration  `json:"latency"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RemoteResult is the get-wisdom function payload.
// ErrorKind is optional; older deployments only send Error and Message text.
type RemoteResult struct {
	Answer      string `json:"answer,omitempty"`
	Status      string `json:"status"`
	UseFallback bool   `json:"useFallback,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Succeeded reports whether the payload carries a usable answer.
func (r *RemoteResult) Succeeded() bool {
	return r != nil && r.Error == "" && !r.UseFallback && r.Answer != ""
}
