package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/progress"
	"github.com/Mohsinsiddi/avagen/internal/steps"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show or reset wizard progress",
}

var progressShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the furthest wizard step reached",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := progress.Load(cfg.ProgressKV())
		if err != nil {
			return err
		}
		all := steps.Catalogue()
		n := min(tr.Step(), len(all))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", ui.Val(fmt.Sprintf("Step %d/%d", n, len(all))), ui.Meta(all[n-1].Title))
		fmt.Fprintln(out, ui.ProgressBar(n*100/len(all), 30))
		return nil
	},
}

var progressResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start the wizard from the first step again",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, err := progress.Load(cfg.ProgressKV())
		if err != nil {
			return err
		}
		if err := tr.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Progress reset to step 1"))
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressShowCmd, progressResetCmd)
}
