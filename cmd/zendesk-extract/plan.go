package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the splits a run would extract",
		Long: `Plan expands the configuration into one split per subdomain and object type and
prints them as JSON. The file can be handed to "run --splits" in another process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadValid()
			if err != nil {
				return err
			}
			splits, err := split.FromConfig(cfg)
			if err != nil {
				return err
			}
			data, err := split.Marshal(splits)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write plan: %w", err)
			}
			opts.logger.Info().Int("splits", len(splits)).Str("path", output).Msg("Plan written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the plan to a file instead of stdout")
	return cmd
}
