package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"styx-hq/charon/pkg/cli"
	"styx-hq/charon/pkg/config"
	"styx-hq/charon/pkg/registry"
)

var validateFlags struct {
	skipRegistry bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the Charon configuration file and the supplier registry.

The validate command loads the configuration (including environment
variable overrides), runs every validation rule, and reports each
failing field. When a supplier registry file is configured it is parsed
and its targets normalized, so a bad entry is caught before it reaches
the running daemon.

Examples:
  # Validate the default config
  charon validate

  # Validate a specific config file
  charon validate --config /etc/charon/charon.yaml

  # Skip the registry file check
  charon validate --skip-registry`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.skipRegistry, "skip-registry", false, "do not parse the supplier registry file")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating configuration: %s\n", cfgFile)

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var validationErr config.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Printf("✗ Configuration invalid (%d errors)\n\n", len(validationErr.Errors))
			for _, fieldErr := range validationErr.Errors {
				fmt.Printf("  - %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return cli.NewConfigError("", fmt.Sprintf("%d validation errors", len(validationErr.Errors)))
		}
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	fmt.Println("✓ Configuration valid")

	if cfg.Registry.Path == "" || validateFlags.skipRegistry {
		return nil
	}

	fmt.Printf("Validating supplier registry: %s\n", cfg.Registry.Path)

	reg := registry.New(cfg.Registry.Path, slog.Default())
	if err := reg.Load(); err != nil {
		fmt.Printf("✗ Supplier registry invalid\n\n  %v\n", err)
		return cli.NewCommandError("validate", fmt.Errorf("registry validation failed"))
	}

	fmt.Printf("✓ Supplier registry valid (%d suppliers)\n", reg.Len())
	for _, name := range reg.Names() {
		if verbose {
			if target, ok := reg.Resolve(name); ok {
				fmt.Printf("  - %s: %s\n", name, target.BaseURL)
			}
		}
	}

	return nil
}
