package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest - chat gateway with conversation history",
	Long: `Harvest sits in front of an Ollama-compatible chat server.

Clients talk to Harvest exactly as they would to the backend:
  - /api/chat and /api/generate are forwarded unchanged
  - streamed NDJSON replies are relayed chunk by chunk
  - completed turns are stored in a history backend (jsonl, sqlite, memory)
  - /api/history returns the newest stored turns`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return cli.NewConfigError("env-file", err.Error())
		}
		return nil
	},
}

// Execute runs the root command and exits with a status derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads cfgFile with environment overrides applied and publishes
// it as the process configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, fmt.Sprintf("failed to load config: %v", err))
	}
	config.SetConfig(cfg)
	return cfg, nil
}
