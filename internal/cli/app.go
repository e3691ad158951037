// Package cli implements the lmsession command tree (spf13/cobra).
//
//   - root.go: persistent flags, config loading, logger setup.
//   - resolve.go: merges config file values with explicitly set flags.
//   - generate.go: one-shot generation (text or NDJSON output).
//   - chat.go: line-oriented REPL over a single loaded session.
//   - models.go: registry listing.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"lmsession/internal/config"
	"lmsession/internal/engine"
	"lmsession/internal/engine/llama"
	"lmsession/internal/engine/toy"
	"lmsession/internal/manager"
	"lmsession/internal/metrics"
)

// App carries per-invocation state shared by subcommands.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	cfg config.Config
	log zerolog.Logger

	// Persistent flag values.
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{Stdin: stdin, Stdout: stdout, Stderr: stderr, log: zerolog.Nop()}
}

// engineFor maps an engine name to an implementation. "auto" (or empty)
// selects by model file extension.
func engineFor(name string) (engine.Engine, error) {
	switch name {
	case "", "auto":
		return engine.ByExtension(map[string]engine.Engine{
			".gguf": llama.New(),
			".tlm":  toy.New(),
		}), nil
	case "llama":
		return llama.New(), nil
	case "toy":
		return toy.New(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want auto, llama or toy)", name)
	}
}

// newManager builds a session manager from the resolved options.
func (a *App) newManager(engineName string) (*manager.Manager, error) {
	eng, err := engineFor(engineName)
	if err != nil {
		return nil, err
	}
	drain, err := a.cfg.Drain()
	if err != nil {
		return nil, err
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Engine:       eng,
		DrainTimeout: drain,
		Logger:       &a.log,
	}), nil
}

// flushMetrics exports the metrics registry when a metrics file is set.
func (a *App) flushMetrics() {
	if a.metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.metricsFile); err != nil {
		a.log.Warn().Err(err).Str("path", a.metricsFile).Msg("write metrics file")
	}
}

// MainWithArgs runs the CLI and returns a process exit code: 0 on success,
// 1 on failure.
func MainWithArgs(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	root := buildRootCmdWith(app)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	app.flushMetrics()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/lmsession.
func Main() int {
	return MainWithArgs(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
