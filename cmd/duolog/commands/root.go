package commands

import (
	"github.com/spf13/cobra"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/engine"
)

const defaultConfigPath = "collector.yml"

type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func (g *globalFlags) engineConfig() engine.Config {
	return engine.Config{
		CollectorYml: g.configPath,
		LogLevel:     g.logLevel,
		LogJSON:      g.logJSON,
	}
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "duolog",
		Short: "Incremental collector for Duo Admin API activity logs",
		Long: `duolog polls the Duo Admin API for authentication, telephony and
administrator logs, normalizes each record into an event and hands it to the
configured sinks. A per-stream checkpoint is persisted only after events were
confirmed, so every record is delivered at least once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath, "Path to collector.yml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides collector.yml)")
	root.PersistentFlags().BoolVar(&g.logJSON, "log-json", false, "Emit logs as JSON")

	root.AddCommand(
		newRunCmd(g),
		newValidateCmd(g),
		newCheckpointsCmd(g),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	root.CompletionOptions.DisableDescriptions = true
	return root
}
