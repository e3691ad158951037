package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"lmsession/internal/generation"
	"lmsession/internal/manager"
)

const chatHelp = "commands: /reset clears the context cache, /status prints session status, /quit exits"

func newChatCmd(app *App) *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive prompt loop over one loaded model",
		Long:  "Reads one prompt per line from stdin and streams each completion.\n" + chatHelp + "\nCtrl-C cancels the running turn; at the prompt it exits.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.resolve(cmd, &rf)
			if err != nil {
				return err
			}
			m, err := app.newManager(r.engine)
			if err != nil {
				return err
			}
			defer m.Release()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt)
			defer signal.Stop(sig)

			if err := m.Load(cmd.Context(), r.model); err != nil {
				return err
			}
			return app.chatLoop(cmd.Context(), m, r.sampling, sig)
		},
	}
	addRunFlags(cmd.Flags(), &rf)
	return cmd
}

// chatLoop runs one generation per input line. A value on interrupts cancels
// the running turn, or ends the loop when it arrives at the prompt.
func (a *App) chatLoop(ctx context.Context, m *manager.Manager, sp generation.SamplingConfig, interrupts <-chan os.Signal) error {
	out := a.Stdout
	fmt.Fprintln(out, chatHelp)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		sc := bufio.NewScanner(a.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-quit:
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		fmt.Fprint(out, "> ")
		var (
			raw string
			ok  bool
		)
		select {
		case raw, ok = <-lines:
		case <-interrupts:
			fmt.Fprintln(out)
			return nil
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		}
		if !ok {
			fmt.Fprintln(out)
			return <-scanErr
		}
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			if err := m.ResetContext(); err != nil {
				fmt.Fprintln(out, "reset failed:", err)
				continue
			}
			fmt.Fprintln(out, "context cleared")
			continue
		case line == "/status":
			b, err := json.MarshalIndent(m.Status(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			continue
		case strings.HasPrefix(line, "/"):
			fmt.Fprintln(out, "unknown command;", chatHelp)
			continue
		}

		res, err := a.chatTurn(ctx, m, line, sp, interrupts)
		fmt.Fprintln(out)
		if err != nil {
			if manager.IsUsageError(err) {
				return err
			}
			fmt.Fprintln(out, "generation failed:", err)
			continue
		}
		if res.StopReason == generation.StopCancelled && ctx.Err() == nil {
			fmt.Fprintln(out, "(cancelled)")
		}
		a.log.Debug().Str("stop_reason", res.StopReason.String()).Int("tokens", res.TokenCount).Msg("turn done")
	}
}

// chatTurn streams one completion; an interrupt cancels only this turn.
func (a *App) chatTurn(ctx context.Context, m *manager.Manager, prompt string, sp generation.SamplingConfig, interrupts <-chan os.Signal) (generation.Result, error) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-finished:
		}
	}()
	return m.Generate(turnCtx, prompt, sp, generation.SinkFunc(func(f string) error {
		_, err := io.WriteString(a.Stdout, f)
		return err
	}))
}
