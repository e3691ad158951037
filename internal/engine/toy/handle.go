package toy

import (
	"errors"
	"fmt"
	"strings"

	"lmsession/internal/engine"
)

const defaultBatchSize = 512

// Engine opens toy model files.
type Engine struct{}

// New returns a toy engine.
func New() Engine { return Engine{} }

// Open reads the model at params.Path and allocates a context of
// params.ContextLength tokens.
func (Engine) Open(params engine.ModelParams) (engine.Handle, error) {
	if strings.TrimSpace(params.Path) == "" {
		return nil, errors.New("toy: model path is empty")
	}
	if params.ContextLength <= 0 {
		return nil, fmt.Errorf("toy: invalid context length %d", params.ContextLength)
	}
	f, err := Read(params.Path)
	if err != nil {
		return nil, err
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &handle{model: f, ctxLen: params.ContextLength, batch: batch}, nil
}

// handle owns the evaluated-token cache. cache plays the role of the
// key-value cache: its tokens are "in context" and are reused when the next
// prompt shares a prefix with them.
type handle struct {
	model  *File
	ctxLen int
	batch  int
	cache  []int32
	active *stream

	// counters, read by tests
	evaluated    int
	prefillSteps int
}

func (h *handle) Tokenize(text string) ([]engine.Token, error) {
	if h.model == nil {
		return nil, engine.ErrClosed
	}
	var out []engine.Token
	if h.model.BOS >= 0 {
		out = append(out, engine.Token{ID: h.model.BOS})
	}
	for pos := 0; pos < len(text); {
		best, bestLen := int32(-1), 0
		for id, piece := range h.model.Vocab {
			if h.model.special(int32(id)) || len(piece) <= bestLen {
				continue
			}
			if strings.HasPrefix(text[pos:], piece) {
				best, bestLen = int32(id), len(piece)
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("toy: no vocabulary entry matches %q at offset %d", clip(text[pos:], 16), pos)
		}
		out = append(out, engine.Token{ID: best})
		pos += bestLen
	}
	return out, nil
}

func (h *handle) Detokenize(tok engine.Token) (string, error) {
	if h.model == nil {
		return "", engine.ErrClosed
	}
	if tok.ID < 0 || int(tok.ID) >= len(h.model.Vocab) {
		return "", fmt.Errorf("toy: token id %d out of range", tok.ID)
	}
	if h.model.special(tok.ID) {
		return "", nil
	}
	return h.model.Vocab[tok.ID], nil
}

func (h *handle) ContextLength() int { return h.ctxLen }

func (h *handle) Start(prompt string, tokens []engine.Token, sp engine.Sampling) (engine.Stream, error) {
	if h.model == nil {
		return nil, engine.ErrClosed
	}
	if h.active != nil {
		return nil, engine.ErrStreamActive
	}
	if len(tokens) > h.ctxLen {
		return nil, engine.ErrContextFull
	}
	// Keep the common prefix, drop the divergent tail, then prefill the rest
	// in batches.
	common := 0
	for common < len(h.cache) && common < len(tokens) && h.cache[common] == tokens[common].ID {
		common++
	}
	h.cache = h.cache[:common]
	for start := common; start < len(tokens); start += h.batch {
		end := min(start+h.batch, len(tokens))
		for _, t := range tokens[start:end] {
			if t.ID < 0 || int(t.ID) >= len(h.model.Vocab) {
				h.cache = h.cache[:start]
				return nil, fmt.Errorf("toy: prefill: token id %d out of range", t.ID)
			}
			h.cache = append(h.cache, t.ID)
		}
		h.evaluated += end - start
		h.prefillSteps++
	}
	h.active = &stream{h: h, s: newSampler(sp)}
	return h.active, nil
}

func (h *handle) ClearCache() error {
	if h.model == nil {
		return engine.ErrClosed
	}
	if h.active != nil {
		return engine.ErrStreamActive
	}
	h.cache = nil
	return nil
}

func (h *handle) Close() error {
	if h.active != nil {
		_ = h.active.Close()
	}
	h.model = nil
	h.cache = nil
	return nil
}

type stream struct {
	h      *handle
	s      *sampler
	closed bool
}

func (st *stream) Next() (engine.Token, bool, error) {
	h := st.h
	if st.closed || h.model == nil {
		return engine.Token{}, false, engine.ErrClosed
	}
	if len(h.cache) >= h.ctxLen {
		return engine.Token{}, false, engine.ErrContextFull
	}
	logits := h.model.Start
	if n := len(h.cache); n > 0 {
		logits = h.model.Transitions[h.cache[n-1]]
	}
	id := st.s.sample(logits)
	if id == h.model.EOS {
		return engine.Token{}, true, nil
	}
	h.cache = append(h.cache, id)
	h.evaluated++
	return engine.Token{ID: id}, false, nil
}

func (st *stream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true
	if st.h.active == st {
		st.h.active = nil
	}
	return nil
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
