package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file with environment overrides applied and
report every invalid field.

Examples:
  harvest validate --config /etc/harvest/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "✗ %s\n", fe.Error())
			}
		}
		return cli.NewConfigError(cfgFile, err.Error())
	}

	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	if verbose {
		fmt.Fprintf(out, "  backend:         %s\n", cfg.Backend.BaseURL)
		fmt.Fprintf(out, "  history backend: %s\n", historyTarget(cfg.History))
		fmt.Fprintf(out, "  listen:          %s\n", cfg.Server.ListenAddress)
	}
	return nil
}
