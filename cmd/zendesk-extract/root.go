package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/config"
	"github.com/prashantcloudsufi/zendesk/pkg/logging"
)

// globalOptions are shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logPretty  bool

	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "zendesk-extract",
		Short: "Extract Zendesk objects into structured records",
		Long: `zendesk-extract reads Zendesk objects (tickets, users, comments, metrics and more)
from one or more subdomains, converts them to Avro-compatible records and writes
one output file per object type.

Configuration is read from --config (YAML, JSON or TOML) and ZENDESK_* environment
variables, e.g. ZENDESK_CONNECTION_API_TOKEN. A .env file is loaded first if present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logging.Setup(logging.Config{
				Level:  level,
				Pretty: opts.logPretty,
				Output: cmd.ErrOrStderr(),
			})
			opts.logger = logging.NewLogger("cli")
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.logPretty, "log-pretty", false, "Human-readable console logs instead of JSON")

	root.AddCommand(
		newValidateCmd(opts),
		newPlanCmd(opts),
		newSchemasCmd(opts),
		newRunCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration without validating it.
func (o *globalOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

// loadValid reads the configuration and returns every violation at once.
func (o *globalOptions) loadValid() (config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate().Err(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
