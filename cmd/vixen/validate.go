package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/vixen"
	"github.com/jpalmerr/vixen/config"
)

// validateCmd validates a config file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a vixen configuration file without starting the relay or pollers.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  vixen validate -c config.yaml
  vixen validate --config /etc/vixen/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = vixen.DefaultNamespace
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Namespace:     %s\n", namespace)
	fmt.Fprintf(out, "  Relay port:    %d\n", cfg.Server.Port)
	fmt.Fprintf(out, "  Pollers:       %d\n", len(cfg.Pollers))
	for _, p := range cfg.Pollers {
		interval := vixen.DefaultInterval
		if p.Interval != 0 {
			interval = p.Interval.Duration()
		}
		fmt.Fprintf(out, "    - %s every %s\n", p.Location, interval)
	}

	return nil
}
