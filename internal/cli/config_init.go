package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/stork/internal/config"
)

// annotationSkipConfig marks commands that must run without loading the
// config file.
const annotationSkipConfig = "stork/skip-config"

// newConfigInitCmd creates the config init command for initializing configuration.
func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at the --config path,
or ~/.stork/config.yaml ($STORK_HOME/config.yaml when set).`,
		Example: `  # Create the global configuration
  stork config init

  # Create configuration, overwriting existing
  stork config init --force`,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if !force {
				_, err := os.Stat(path)
				if err == nil {
					return errors.New("configuration file already exists, use --force to overwrite")
				}
				if !os.IsNotExist(err) {
					return fmt.Errorf("cannot access config path %s: %w", path, err)
				}
			}

			if err := config.New().Save(path); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	return cmd
}

// newConfigShowCmd creates the config show command.
func newConfigShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after the config file, .env file, environment
variables and command-line flags have been applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.settings()
			w := cmd.OutOrStdout()

			switch strings.ToLower(output) {
			case config.OutputJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case config.OutputYAML, "":
				if path := cfg.Path(); path != "" {
					fmt.Fprintf(w, "# %s\n", path)
				}
				enc := yaml.NewEncoder(w)
				defer enc.Close()
				return enc.Encode(cfg)
			default:
				return fmt.Errorf("%w: %q", config.ErrInvalidOutput, output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", config.OutputYAML, "output format: yaml or json")
	return cmd
}
