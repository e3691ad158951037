// Package ndjson streams generation output as newline-delimited JSON: one
// {"token":...} line per fragment followed by a single done line.
package ndjson

import (
	"io"

	json "github.com/goccy/go-json"

	"lmsession/internal/generation"
	"lmsession/pkg/types"
)

// Sink implements generation.Sink over an io.Writer.
type Sink struct {
	w     io.Writer
	runID string
}

// New returns a sink writing to w. runID is echoed on the done line.
func New(w io.Writer, runID string) *Sink { return &Sink{w: w, runID: runID} }

func (s *Sink) OnToken(fragment string) error {
	return s.writeLine(types.TokenLine{Token: fragment})
}

// Done writes the terminating line for res. err, when set, is reported in the
// line's error field.
func (s *Sink) Done(res generation.Result, err error) error {
	line := types.DoneLine{
		Done:       true,
		Content:    res.Text,
		StopReason: res.StopReason.String(),
		Usage: types.Usage{
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.TokenCount,
			TotalTokens:      res.PromptTokens + res.TokenCount,
		},
		RunID:      s.runID,
		DurationMS: res.Duration.Milliseconds(),
	}
	if err != nil {
		line.Error = err.Error()
	}
	return s.writeLine(line)
}

func (s *Sink) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = s.w.Write(b)
	return err
}
