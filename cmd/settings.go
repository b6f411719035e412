package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/genesis"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage avagen settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n\n", ui.StyleTitle.Render("Current Settings"))
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting and persist it.

Keys: assistant_url, request_timeout, owner_address, subnet_owner, network,
output_dir, token_decimals.

Examples:
  avagen settings set assistant_url https://assistant.example/chat
  avagen settings set request_timeout 45s
  avagen settings set owner_address 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key == "owner_address" && !genesis.ValidAddress(value) {
			return fmt.Errorf("%q is not a valid EVM address", value)
		}
		if key == "network" {
			if _, err := registry.ByName(value); err != nil {
				return fmt.Errorf("%w: run `avagen network list`", err)
			}
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd)
}
