package generation

import "fmt"

// TokenizationError is returned when the prompt cannot be turned into tokens
// or does not fit the context window. No decode work has happened.
type TokenizationError struct {
	Tokens        int
	ContextLength int
	Err           error
}

func (e *TokenizationError) Error() string {
	if e.Err != nil {
		return "tokenize prompt: " + e.Err.Error()
	}
	return fmt.Sprintf("tokenize prompt: %d tokens exceed context length %d", e.Tokens, e.ContextLength)
}

func (e *TokenizationError) Unwrap() error { return e.Err }

// DecodeError wraps an engine failure while priming or stepping.
type DecodeError struct {
	Step int
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode step %d: %v", e.Step, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// SinkError wraps an error returned by the sink.
type SinkError struct{ Err error }

func (e *SinkError) Error() string { return "sink: " + e.Err.Error() }

func (e *SinkError) Unwrap() error { return e.Err }
