package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/network"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var registry = network.NewRegistry()

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show Avalanche networks",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known Avalanche networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := ui.NewTable([]ui.Column{
			{Title: "Name"},
			{Title: "Display"},
			{Title: "Chain ID"},
			{Title: "RPC"},
			{Title: "Explorer"},
		})
		for i, n := range registry.All() {
			name := n.Name
			if n.Name == cfg.Network {
				name += " *"
				t.SelIdx = i
			}
			t.AddRow(ui.Row{name, n.DisplayName, fmt.Sprintf("%d", n.ChainID), n.RPC, n.Explorer})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta("* current network · chain IDs above are reserved for your L1"))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd)
}
