package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/walt0white1/prospectflow-sub000/internal/cli"
	"github.com/walt0white1/prospectflow-sub000/internal/sector"
)

func newSectorsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sectors",
		Short: "List the supported business sectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(e.stdout).Encode(map[string]any{"sectors": sector.All()})
			}
			return cli.RenderSectors(e.stdout, sector.All())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the sector table as JSON")
	return cmd
}
