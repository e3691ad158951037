package cli

import (
	"github.com/spf13/cobra"

	"lmsession/internal/config"
	"lmsession/internal/logging"
)

// buildRootCmdWith constructs the Cobra command tree bound to app.
func buildRootCmdWith(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "lmsession",
		Short:         "Run streamed text generation against a local model file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> App
	pf := root.PersistentFlags()
	pf.StringVar(&app.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.StringVar(&app.logLevel, "log-level", "", "Log level: off|error|warn|info|debug (default warn)")
	pf.StringVar(&app.logFormat, "log-format", "", "Log format: console|json (default console)")
	pf.StringVar(&app.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.configPath != "" {
			cfg, err := config.Load(app.configPath)
			if err != nil {
				return err
			}
			app.cfg = cfg
		}
		// Flags explicitly set win over config file values.
		if !cmd.Flags().Changed("log-level") {
			app.logLevel = firstNonEmpty(app.cfg.LogLevel, "warn")
		}
		if !cmd.Flags().Changed("log-format") {
			app.logFormat = firstNonEmpty(app.cfg.LogFormat, "console")
		}
		if !cmd.Flags().Changed("metrics-file") {
			app.metricsFile = app.cfg.MetricsFile
		}
		app.log = logging.New(app.Stderr, app.logLevel, app.logFormat)
		return nil
	}
	root.AddCommand(newGenerateCmd(app), newChatCmd(app), newModelsCmd(app))
	return root
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
