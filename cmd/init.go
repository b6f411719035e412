package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/genesis"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup wizard",
	Long:  "Launch the interactive setup wizard to configure avagen and start a draft.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner(Version))

		result, err := ui.RunSetup()
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(out, ui.Meta("Setup cancelled, nothing changed."))
			return nil
		}
		if err := applySetup(result); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		if _, err := openDraft(cfg); err != nil {
			return err
		}

		fmt.Fprintln(out, ui.Success("avagen configured!"))
		fmt.Fprintln(out, ui.Hint("Run `avagen wizard` to edit the draft or `avagen chat` to ask the assistant."))
		return nil
	},
}

func applySetup(r *ui.SetupResult) error {
	if r.Network != "" {
		cfg.Network = r.Network
	}
	if r.AssistantURL != "" {
		cfg.AssistantURL = r.AssistantURL
	}
	if r.OwnerAddress != "" {
		if !genesis.ValidAddress(r.OwnerAddress) {
			return fmt.Errorf("owner address %q is not a valid EVM address", r.OwnerAddress)
		}
		cfg.OwnerAddress = r.OwnerAddress
	}
	if r.SubnetOwner != "" {
		cfg.SubnetOwner = r.SubnetOwner
	}
	return nil
}
