package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/client"
	"github.com/prashantcloudsufi/zendesk/pkg/config"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and optionally the connection",
		Long: `Validate checks every configuration property and reports all violations together.
With --probe it also sends one request per subdomain to verify that the subdomain
exists and the credentials are accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if fs := cfg.Validate(); len(fs) > 0 {
				for _, f := range fs {
					fmt.Fprintf(out, "invalid %s\n", f.Error())
				}
				return fs
			}
			fmt.Fprintln(out, "configuration valid")

			if !probe {
				return nil
			}
			return probeSubdomains(cmd, opts, cfg)
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Send a test request to every subdomain")
	return cmd
}

func probeSubdomains(cmd *cobra.Command, opts *globalOptions, cfg config.Config) error {
	out := cmd.OutOrStdout()

	c, err := client.New(client.ConfigFrom(cfg, nil))
	if err != nil {
		return err
	}
	defer c.Close()

	var errs []error
	for _, sub := range cfg.Connection.SubdomainList() {
		if err := c.Probe(cmd.Context(), sub); err != nil {
			opts.logger.Error().Err(err).Str("subdomain", sub).Msg("Connection test failed")
			fmt.Fprintf(out, "%s: %v\n", sub, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", sub)
	}
	return errors.Join(errs...)
}
