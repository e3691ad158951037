// Package engine defines the capability the session core consumes from an
// inference backend: opening a model, tokenizing, priming the decode state and
// stepping one token at a time. Implementations live in subpackages:
//
//   - llama: go-llama.cpp bindings. Enabled with `-tags=llama`; a CGO-free stub
//     that refuses to open models is compiled otherwise.
//   - toy: a small pure-Go bigram model read from a JSON file, used by tests
//     and for exercising the session without native libraries.
//
// Handles are not safe for concurrent use. The session manager guarantees a
// single caller at a time.
package engine

// Token is one vocabulary unit. Backends that only surface text pieces set ID
// to NoID and carry the piece in Text.
type Token struct {
	ID   int32
	Text string
}

// NoID marks a token whose vocabulary id is not exposed by the backend.
const NoID int32 = -1

// ModelParams sizes the execution context created by Open.
type ModelParams struct {
	Path          string
	Threads       int
	ContextLength int
	// BatchSize is the number of prompt tokens evaluated per prefill step.
	BatchSize int
}

// Sampling carries the per-run sampling policy handed to Start.
// Temperature 0 selects greedy decoding.
type Sampling struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	TopK        int
	Seed        int
}

// Greedy reports whether sampling must always pick the most likely token.
func (s Sampling) Greedy() bool { return s.Temperature <= 0 }

// Engine opens models. Open must never return a partially initialized handle:
// on error every resource acquired so far is released.
type Engine interface {
	Open(params ModelParams) (Handle, error)
}

// Handle is a loaded model plus its execution context.
type Handle interface {
	// Tokenize converts text into vocabulary tokens.
	Tokenize(text string) ([]Token, error)
	// Detokenize returns the text fragment for a single token.
	Detokenize(tok Token) (string, error)
	// ContextLength is the maximum number of tokens (prompt + generated) the
	// handle can hold.
	ContextLength() int
	// Start primes the decode state with the prompt and returns a stream that
	// produces one token per Next call. Only one stream may be open at a time.
	Start(prompt string, tokens []Token, sp Sampling) (Stream, error)
	// ClearCache drops the key-value cache and the record of evaluated tokens.
	ClearCache() error
	// Close releases all engine memory. It is idempotent.
	Close() error
}

// Stream is one generation run against a handle.
type Stream interface {
	// Next samples and evaluates one token. eos reports that the engine
	// produced its end-of-sequence marker; tok is then the zero Token.
	Next() (tok Token, eos bool, err error)
	// Close ends the run. The engine does no further work on behalf of the
	// stream once Close returns.
	Close() error
}
