package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/artifact"
	"github.com/prashantcloudsufi/zendesk/pkg/extract"
)

func newSchemasCmd(opts *globalOptions) *cobra.Command {
	var publishDir string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Print the output schema of every selected object type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			coord, err := extract.Build(cfg, nil, opts.logger)
			if err != nil {
				return err
			}

			schemas := coord.Artifacts()
			tables := make([]string, 0, len(schemas))
			for table := range schemas {
				tables = append(tables, table)
			}
			slices.Sort(tables)

			out := cmd.OutOrStdout()
			for _, table := range tables {
				fmt.Fprintf(out, "%s\t%s\n", artifact.Name(table), schemas[table])
			}

			if publishDir == "" {
				return nil
			}
			names, err := artifact.NewFilePublisher(publishDir).Publish(cmd.Context(), coord.RunID(), schemas)
			if err != nil {
				return err
			}
			opts.logger.Info().Strs("artifacts", names).Str("dir", publishDir).Msg("Schemas published")
			return nil
		},
	}

	cmd.Flags().StringVar(&publishDir, "publish-dir", "", "Also write each schema as <dir>/multisink.<table>.avsc")
	return cmd
}
