package generation

import (
	"errors"
	"strings"

	"lmsession/internal/engine"
)

// fakeHandle tokenizes on whitespace and replays a fixed list of pieces.
type fakeHandle struct {
	pieces   []string
	eos      bool // emit EOS after pieces; otherwise repeat the last piece
	ctxLen   int
	tokErr   error
	startErr error
	nextErr  error
	errAt    int // 1-based step returning nextErr

	starts  int
	opened  *fakeStream
	lastSP  engine.Sampling
	touched bool
}

func (h *fakeHandle) Tokenize(text string) ([]engine.Token, error) {
	h.touched = true
	if h.tokErr != nil {
		return nil, h.tokErr
	}
	var out []engine.Token
	for i, w := range strings.Fields(text) {
		out = append(out, engine.Token{ID: int32(i), Text: w})
	}
	return out, nil
}

func (h *fakeHandle) Detokenize(tok engine.Token) (string, error) { return tok.Text, nil }

func (h *fakeHandle) ContextLength() int { return h.ctxLen }

func (h *fakeHandle) Start(prompt string, tokens []engine.Token, sp engine.Sampling) (engine.Stream, error) {
	h.touched = true
	if h.startErr != nil {
		return nil, h.startErr
	}
	h.starts++
	h.lastSP = sp
	h.opened = &fakeStream{h: h}
	return h.opened, nil
}

func (h *fakeHandle) ClearCache() error { return nil }
func (h *fakeHandle) Close() error      { return nil }

type fakeStream struct {
	h      *fakeHandle
	step   int
	closed bool
}

func (s *fakeStream) Next() (engine.Token, bool, error) {
	if s.closed {
		return engine.Token{}, false, engine.ErrClosed
	}
	s.step++
	if s.h.nextErr != nil && s.step == s.h.errAt {
		return engine.Token{}, false, s.h.nextErr
	}
	if s.step > len(s.h.pieces) {
		if s.h.eos || len(s.h.pieces) == 0 {
			return engine.Token{}, true, nil
		}
		return engine.Token{ID: int32(s.step), Text: s.h.pieces[len(s.h.pieces)-1]}, false, nil
	}
	return engine.Token{ID: int32(s.step), Text: s.h.pieces[s.step-1]}, false, nil
}

func (s *fakeStream) Close() error { s.closed = true; return nil }

// recordSink collects fragments and optionally fails on a given call.
type recordSink struct {
	got    []string
	failAt int
	hook   func(n int)
}

var errSinkFull = errors.New("sink full")

func (r *recordSink) OnToken(f string) error {
	r.got = append(r.got, f)
	if r.hook != nil {
		r.hook(len(r.got))
	}
	if r.failAt > 0 && len(r.got) == r.failAt {
		return errSinkFull
	}
	return nil
}

func (r *recordSink) text() string { return strings.Join(r.got, "") }
