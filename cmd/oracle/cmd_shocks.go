package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/shock"
)

func newShocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shocks",
		Short: "List the shocks that can be applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			catalog := shock.Catalog()
			out := cmd.OutOrStdout()

			if jsonOut {
				items := make([]map[string]string, 0, len(catalog))
				for _, s := range catalog {
					items = append(items, map[string]string{
						"name":        s.Name,
						"factor":      s.Factor.String(),
						"kind":        string(s.Kind),
						"description": s.Description,
					})
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"shocks":  items,
					"default": shock.DefaultSelected,
				})
			}

			for _, s := range catalog {
				marker := " "
				if s.Name == shock.DefaultSelected {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n    %s %s: %s\n", marker, s.Name, s.Kind, s.Factor, s.Description)
			}
			return nil
		},
	}
}
