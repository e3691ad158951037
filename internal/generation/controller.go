package generation

import (
	"context"
	"strings"
	"time"

	"lmsession/internal/engine"
)

// Run generates a continuation of prompt with h and streams each fragment to
// sink (which may be nil). The returned Result always carries the partial text
// produced so far; Text equals the concatenation of every fragment delivered.
//
// Cancellation of ctx is observed between tokens and ends the run with
// StopCancelled and a nil error.
func Run(ctx context.Context, h engine.Handle, prompt string, cfg SamplingConfig, sink Sink) (Result, error) {
	start := time.Now()
	res := Result{StopReason: StopMaxTokens}
	if cfg.MaxTokens == 0 {
		return res, nil
	}
	var text strings.Builder
	finish := func(reason StopReason, err error) (Result, error) {
		res.Text = text.String()
		res.StopReason = reason
		res.Duration = time.Since(start)
		return res, err
	}

	toks, err := h.Tokenize(prompt)
	if err != nil {
		return finish(StopError, &TokenizationError{Err: err})
	}
	ctxLen := h.ContextLength()
	res.PromptTokens = len(toks)
	if len(toks) > ctxLen {
		return finish(StopError, &TokenizationError{Tokens: len(toks), ContextLength: ctxLen})
	}
	budget := min(cfg.MaxTokens, ctxLen-len(toks))
	if budget <= 0 {
		return finish(StopMaxTokens, nil)
	}
	if ctx.Err() != nil {
		return finish(StopCancelled, nil)
	}

	st, err := h.Start(prompt, toks, cfg.engineSampling(budget))
	if err != nil {
		return finish(StopError, &DecodeError{Step: 0, Err: err})
	}
	defer st.Close()

	for {
		if ctx.Err() != nil {
			return finish(StopCancelled, nil)
		}
		if res.TokenCount >= budget {
			return finish(StopMaxTokens, nil)
		}
		tok, eos, err := st.Next()
		if err != nil {
			return finish(StopError, &DecodeError{Step: res.TokenCount + 1, Err: err})
		}
		if eos {
			return finish(StopEOS, nil)
		}
		frag, err := h.Detokenize(tok)
		if err != nil {
			return finish(StopError, &DecodeError{Step: res.TokenCount + 1, Err: err})
		}
		res.TokenCount++
		text.WriteString(frag)
		if sink != nil {
			if err := sink.OnToken(frag); err != nil {
				return finish(StopError, &SinkError{Err: err})
			}
		}
		if stopHit(text.String(), len(frag), cfg.Stop) {
			return finish(StopSequence, nil)
		}
	}
}

// stopHit reports whether any stop string occurs in text overlapping the last
// fragLen bytes, i.e. whether the newest fragment completed a stop sequence.
func stopHit(text string, fragLen int, stops []string) bool {
	for _, s := range stops {
		from := max(0, len(text)-fragLen-len(s)+1)
		if strings.Contains(text[from:], s) {
			return true
		}
	}
	return false
}
