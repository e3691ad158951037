package ndjson

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"lmsession/internal/generation"
	"lmsession/pkg/types"
)

func TestSink_WritesTokenAndDoneLines(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "run-1")
	for _, f := range []string{"Hel", "lo\n", "\"!\""} {
		if err := s.OnToken(f); err != nil {
			t.Fatalf("OnToken: %v", err)
		}
	}
	res := generation.Result{Text: "Hello\n\"!\"", TokenCount: 3, PromptTokens: 2, StopReason: generation.StopEOS, Duration: 1500 * time.Millisecond}
	if err := s.Done(res, nil); err != nil {
		t.Fatalf("Done: %v", err)
	}

	sc := bufio.NewScanner(&buf)
	var content strings.Builder
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	for _, l := range lines[:3] {
		var tl types.TokenLine
		if err := json.Unmarshal([]byte(l), &tl); err != nil {
			t.Fatalf("token line %q: %v", l, err)
		}
		content.WriteString(tl.Token)
	}
	var done types.DoneLine
	if err := json.Unmarshal([]byte(lines[3]), &done); err != nil {
		t.Fatalf("done line: %v", err)
	}
	if !done.Done || done.Content != content.String() || done.StopReason != "eos" || done.RunID != "run-1" {
		t.Fatalf("unexpected done: %+v", done)
	}
	if done.Usage.TotalTokens != 5 || done.DurationMS != 1500 || done.Error != "" {
		t.Fatalf("unexpected usage: %+v", done)
	}
}

func TestSink_DoneCarriesError(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, "")
	_ = s.Done(generation.Result{StopReason: generation.StopError}, errors.New("decode failed"))
	if !strings.Contains(buf.String(), `"error":"decode failed"`) || !strings.Contains(buf.String(), `"stop_reason":"error"`) {
		t.Fatalf("unexpected: %s", buf.String())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSink_WriteErrorPropagates(t *testing.T) {
	if err := New(failWriter{}, "").OnToken("x"); err == nil {
		t.Fatalf("expected write error")
	}
}
