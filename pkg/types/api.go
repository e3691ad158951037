package types

// TokenLine is one streamed fragment in NDJSON output.
type TokenLine struct {
	// Text fragment exactly as delivered to the sink.
	// example: Hello
	Token string `json:"token"`
}

// Usage reports token accounting for a finished run.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DoneLine terminates an NDJSON stream.
type DoneLine struct {
	Done bool `json:"done"`
	// Full generated text (concatenation of every token line).
	Content string `json:"content"`
	// example: eos
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
	// Identifier of the generation run.
	RunID string `json:"run_id,omitempty"`
	// Error message when the run ended with an error.
	Error string `json:"error,omitempty"`
	// Wall-clock duration of the run in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// StatusResponse summarizes a session.
type StatusResponse struct {
	// Current lifecycle state: unloaded, loaded or generating.
	// example: loaded
	State string `json:"state"`
	// Path of the loaded model, empty when unloaded.
	ModelPath string `json:"model_path,omitempty"`
	// example: 4
	Threads int `json:"threads,omitempty"`
	// example: 4096
	ContextLength int `json:"context_length,omitempty"`
	// Total number of successful model loads.
	LoadsTotal uint64 `json:"loads_total"`
	// Total number of completed generation runs.
	GenerationsTotal uint64 `json:"generations_total"`
	// Last error observed by the session (if any).
	LastError string `json:"last_error,omitempty"`
	// Seconds since the session was created.
	UptimeSeconds int64 `json:"uptime_seconds"`
}
