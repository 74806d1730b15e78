package types

// ChatStreamRequest is the payload of POST /chat_stream.
// Sampling fields are pointers so that an absent or null value can be told
// apart from an explicit zero.
type ChatStreamRequest struct {
	// Conversation in order.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature. Default 0.2.
	// example: 0.2
	Temperature *float64 `json:"temperature,omitempty" example:"0.2"`
	// Nucleus sampling probability. Default 0.9.
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// Maximum number of new tokens to generate. Default 256.
	// example: 256
	MaxTokens *int `json:"max_tokens,omitempty" example:"256"`
	// Top-K sampling; omitted lets the engine choose.
	// example: 40
	TopK *int `json:"top_k,omitempty" example:"40"`
	// Optional stop sequences.
	// example: ["[USER]"]
	Stop []string `json:"stop,omitempty"`
	// Random seed; omitted or 0 lets the engine choose.
	// example: 42
	Seed *int `json:"seed,omitempty" example:"42"`
	// Repeat penalty.
	// example: 1.1
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty" example:"1.1"`
}

// DeltaLine is one NDJSON line carrying a generated fragment.
type DeltaLine struct {
	// example: Hel
	Delta string `json:"delta" example:"Hel"`
}

// DoneLine terminates a successful stream.
type DoneLine struct {
	// example: true
	Done bool `json:"done" example:"true"`
}

// StreamErrorLine is written once before closing a stream that failed after
// streaming began. It is never followed by a DoneLine.
type StreamErrorLine struct {
	// example: engine-internal: decode failed
	Error string `json:"error" example:"engine-internal: decode failed"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// True once the engine is loaded and accepting work.
	// example: true
	OK bool `json:"ok" example:"true"`
	// Configured model identifier.
	// example: tinyllama-1.1b-chat.Q4_K_M.gguf
	Model string `json:"model" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: engine-not-loaded
	Error string `json:"error" example:"engine-not-loaded"`
	// HTTP status code.
	// example: 500
	Code int `json:"code" example:"500"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Engine lifecycle state: uninitialized, loading, ready, failed, stopped.
	// example: ready
	State string `json:"state" example:"ready"`
	// Served model, once known.
	Model *ModelInfo `json:"model,omitempty"`
	// Admission policy: queue, reject or concurrent.
	// example: queue
	Admission string `json:"admission" example:"queue"`
	// Requests waiting for the generation slot.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Generations currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Total number of successful engine loads.
	// example: 1
	LoadsTotal uint64 `json:"loads_total" example:"1"`
	// Total number of generations admitted.
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// Total number of submissions rejected as busy.
	// example: 2
	RejectedTotal uint64 `json:"rejected_total" example:"2"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
