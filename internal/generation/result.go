package generation

import "time"

// StopReason tells why a run ended.
type StopReason int

const (
	StopMaxTokens StopReason = iota
	StopSequence
	StopEOS
	StopCancelled
	StopError
)

func (r StopReason) String() string {
	switch r {
	case StopMaxTokens:
		return "max_tokens"
	case StopSequence:
		return "stop_sequence"
	case StopEOS:
		return "eos"
	case StopCancelled:
		return "cancelled"
	case StopError:
		return "error"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run. Text is always populated with whatever was
// produced, including when Run also returns an error.
type Result struct {
	Text         string
	TokenCount   int
	PromptTokens int
	StopReason   StopReason
	Duration     time.Duration
}
