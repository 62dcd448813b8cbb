package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
	"github.com/agrioracle/agri-oracle/internal/shock"
	"github.com/agrioracle/agri-oracle/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the correlation network",
		Long: `Render the correlation network for an initial condition and shocks.

Examples:
  oracle graph | dot -Tpng -o network.png
  oracle graph --monsoon Disrupted --shock "Severe Drought Hits"
  oracle graph --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatFlag, _ := cmd.Flags().GetString("format")
			jsonOut, _ := cmd.Flags().GetBool("json")
			monsoon, _ := cmd.Flags().GetString("monsoon")
			subsidies, _ := cmd.Flags().GetString("subsidies")
			shocks, _ := cmd.Flags().GetStringArray("shock")

			if jsonOut && !cmd.Flags().Changed("format") {
				formatFlag = string(visualization.FormatJSON)
			}
			format, err := visualization.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			base := network.NewBuilder(cfg.NetworkParams()).Build(models.InitialCondition{
				Monsoon:   models.MonsoonState(monsoon),
				Subsidies: models.SubsidyState(subsidies),
			})
			n, err := shock.Apply(base, shocks)
			if err != nil {
				return err
			}

			switch format {
			case visualization.FormatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(visualization.RenderJSON(n))
			default:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(n))
				return nil
			}
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().String("monsoon", "", "Initial monsoon state: Normal or Disrupted")
	cmd.Flags().String("subsidies", "", "Initial subsidy state: Standard or High")
	cmd.Flags().StringArray("shock", nil, "Shock to draw (repeatable, applied in order)")

	return cmd
}
