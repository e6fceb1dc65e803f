package publish

import "encoding/json"

// PublishMessageRequest is the body of POST /batch/messages
type PublishMessageRequest struct {
	RoutingKey string            `json:"routing_key"`
	Payload    json.RawMessage   `json:"payload"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// BatchStatus describes the pending batch
type BatchStatus struct {
	Exchange string `json:"exchange"`
	Pending  int    `json:"pending"`
}

// FlushSummary describes the outcome of a flush
type FlushSummary struct {
	ID         string  `json:"id,omitempty"`
	Exchange   string  `json:"exchange"`
	Messages   int     `json:"messages"`
	DurationMs float64 `json:"duration_ms"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type BatchResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Batch   *BatchStatus `json:"batch,omitempty"`
}

type FlushResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Flush   *FlushSummary `json:"flush,omitempty"`
}

type ResetResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Discarded int    `json:"discarded"`
}
