// Package logging builds the zerolog loggers used across the module.
package logging

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config/flag value to a zerolog level. Unknown values fall
// back to info.
func ParseLevel(s string) zerolog.Level {
	switch s {
	case "off", "disabled":
		return zerolog.Disabled
	case "error":
		return zerolog.ErrorLevel
	case "warn":
		return zerolog.WarnLevel
	case "info", "":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to w. format "json" emits raw JSON lines; any
// other value uses the human-readable console writer.
func New(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// LineWriter logs each complete line written to it at debug level. Partial
// lines are buffered until their newline arrives.
type LineWriter struct {
	Log    zerolog.Logger
	Prefix string
	buf    []byte
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(lw.buf[:idx])
		if len(line) > 0 {
			lw.Log.Debug().Str("line", line).Msg(lw.Prefix)
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
