package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/progress"
	"github.com/Mohsinsiddi/avagen/internal/steps"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var wizardJump bool

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Edit the draft step by step",
	Long: `Open the step-by-step editor on the draft. It resumes at the furthest
step reached; --jump picks a step first. Changes are saved as you go.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		tr, err := progress.Load(cfg.ProgressKV())
		if err != nil {
			return err
		}

		nav := steps.NewNavigator(steps.Catalogue())
		nav.GoTo(min(tr.Step(), nav.Total()) - 1)
		if wizardJump {
			n, err := ui.PickStep(nav.Steps(), nav.Number())
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			nav.GoTo(n - 1)
		}

		err = ui.RunStepWizard(ui.StepWizard{
			Store: d.Store,
			Nav:   nav,
			Check: func(n *confstore.Node) (map[string]string, map[string]string) {
				res := checkDraft(n)
				return res.Errors, res.Warnings
			},
			OnStep: func(n int) error {
				_, err := tr.Update(n)
				return err
			},
		})
		if err != nil {
			return err
		}
		if err := d.Err(); err != nil {
			return err
		}

		res := checkDraft(d.SnapshotNested())
		out := cmd.OutOrStdout()
		if res.Ready() {
			fmt.Fprintln(out, ui.Success("Draft is ready"))
			fmt.Fprintln(out, ui.Hint("Run `avagen genesis export` to write genesis.json."))
			return nil
		}
		fmt.Fprintln(out, ui.Warn(fmt.Sprintf("Draft saved with %d open issue(s)", len(res.Errors))))
		fmt.Fprintln(out, ui.Hint("Run `avagen genesis validate` to list them."))
		return nil
	},
}

func init() {
	wizardCmd.Flags().BoolVar(&wizardJump, "jump", false, "choose the step to open")
}
