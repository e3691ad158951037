package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lmsession/internal/generation"
	"lmsession/internal/logging"
	"lmsession/internal/manager"
	"lmsession/internal/ndjson"
)

func newGenerateCmd(app *App) *cobra.Command {
	var (
		rf     runFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a continuation of prompt (read from stdin when omitted)",
		Example: "  lmsession generate -m ~/models/tinyllama.Q4_K_M.gguf \"Once upon a time\"\n" +
			"  echo Hello | lmsession generate -m hello.tlm --format ndjson",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "ndjson" {
				return fmt.Errorf("unknown format %q (want text or ndjson)", format)
			}
			r, err := app.resolve(cmd, &rf)
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(app.Stdin)
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimRight(string(b), "\r\n")
			}
			return app.runGenerate(cmd, r, prompt, format)
		},
	}
	addRunFlags(cmd.Flags(), &rf)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|ndjson")
	return cmd
}

func (a *App) runGenerate(cmd *cobra.Command, r resolved, prompt, format string) error {
	m, err := a.newManager(r.engine)
	if err != nil {
		return err
	}
	defer m.Release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if err := m.Load(ctx, r.model); err != nil {
		return err
	}

	runID := uuid.NewString()
	var (
		sink generation.Sink
		nd   *ndjson.Sink
	)
	switch format {
	case "ndjson":
		w := io.MultiWriter(a.Stdout, &logging.LineWriter{Log: a.log, Prefix: "ndjson"})
		nd = ndjson.New(w, runID)
		sink = nd
	default:
		sink = generation.SinkFunc(func(f string) error {
			_, err := io.WriteString(a.Stdout, f)
			return err
		})
	}

	res, err := m.GenerateWithOptions(ctx, prompt, r.sampling, sink, manager.GenerateOptions{RunID: runID})
	if nd != nil {
		if derr := nd.Done(res, err); derr != nil && err == nil {
			err = derr
		}
	} else if res.Text != "" && !strings.HasSuffix(res.Text, "\n") {
		fmt.Fprintln(a.Stdout)
	}
	if err != nil {
		return err
	}
	a.log.Info().Str("run_id", runID).Str("stop_reason", res.StopReason.String()).
		Int("tokens", res.TokenCount).Dur("dur", res.Duration).Msg("done")
	return nil
}
