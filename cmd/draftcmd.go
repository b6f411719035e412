package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var (
	setAsString bool
	resetYes    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the draft chain configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the draft as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(d.SnapshotNested(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configFlatCmd = &cobra.Command{
	Use:   "flat",
	Short: "List every dot-path and its value",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		flat := d.Flat()
		t := ui.NewTable([]ui.Column{{Title: "Path"}, {Title: "Value"}})
		t.MaxCell = 66
		for _, p := range confstore.SortedPaths(flat) {
			t.AddRow(ui.Row{p, flat[p]})
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the value at a dot-path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		if v, ok := d.GetValue(args[0]); ok {
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}
		// Not a leaf: print the subtree.
		sub := confstore.Lookup(d.SnapshotNested(), args[0])
		if sub == nil {
			return fmt.Errorf("%s is not set", args[0])
		}
		data, err := json.MarshalIndent(sub, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set the value at a dot-path",
	Long: `Set the value at a dot-path. Numbers, true/false and null are stored
typed unless --string is given. Missing objects and arrays along the path
are created.

Examples:
  avagen config set evmChainId 43114
  avagen config set feeConfig.minBaseFee 25000000000
  avagen config set tokenAllocations.1.address 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		leaf := confstore.ParseLeaf(args[1])
		if setAsString {
			leaf = confstore.String(args[1])
		}
		if err := d.SetValue(args[0], leaf); err != nil {
			return err
		}
		if err := d.Err(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s = %s", args[0], leaf)))
		reportIssuesAt(cmd.OutOrStdout(), d, args[0])
		return nil
	},
}

var configUnsetIndexCmd = &cobra.Command{
	Use:   "unset-index <path> <index>",
	Short: "Remove one item from an array; later items shift down",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("index %q is not a number", args[1])
		}
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		if err := d.RemoveIndex(args[0], i); err != nil {
			return err
		}
		if err := d.Err(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed %s.%d", args[0], i)))
		return nil
	},
}

var configApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Merge a partial configuration from a JSON or TOML file",
	Long: `Merge a partial configuration into the draft. Only the leaves named in
the file change. Use "-" to read JSON from stdin.

Example patch.toml:
  [feeConfig]
  minBaseFee = 30000000000

  [[tokenAllocations]]
  address = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
  amount = 5000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := readPatch(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		total := len(confstore.Flatten(patch))
		err = d.MergePatch(patch)
		skipped := confstore.PatchErrors(err)
		switch {
		case len(skipped) > 0:
			// Conflicting entries were skipped; the rest applied.
			fmt.Fprintln(out, ui.Warn(fmt.Sprintf("%d value(s) did not fit the current configuration and were skipped:", len(skipped))))
			for _, pe := range skipped {
				fmt.Fprintln(out, "  "+ui.Path(pe.Path)+ui.Meta(": "+pe.Err.Error()))
			}
		case err != nil:
			return err
		}
		if err := d.Err(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Applied %d value(s) from %s", total-len(skipped), args[0])))
		return nil
	},
}

var configQueryCmd = &cobra.Command{
	Use:   "query <jsonpath>",
	Short: "Evaluate a JSONPath expression against the draft",
	Long: `Evaluate a JSONPath expression against the draft.

Examples:
  avagen config query '$.tokenAllocations[*].address'
  avagen config query '$..admins'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		res, err := d.Query(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the draft and start from defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes && !ui.ConfirmDanger(cmd.InOrStdin(), cmd.ErrOrStderr(), "Discard the current draft?") {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
			return nil
		}
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		d.Reset()
		if err := d.Err(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Draft reset to defaults"))
		return nil
	},
}

// readPatch loads a patch tree; the format follows the file extension.
func readPatch(stdin io.Reader, name string) (*confstore.Node, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}

	if strings.EqualFold(filepath.Ext(name), ".toml") {
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		return confstore.FromAny(m)
	}
	n, err := confstore.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return n, nil
}

// reportIssuesAt prints validation messages raised against path.
func reportIssuesAt(w io.Writer, d *draft, path string) {
	res := checkDraft(d.SnapshotNested())
	if msg, ok := res.Errors[path]; ok {
		fmt.Fprintln(w, ui.Err(msg))
	}
	if msg, ok := res.Warnings[path]; ok {
		fmt.Fprintln(w, ui.Warn(msg))
	}
}

func init() {
	configSetCmd.Flags().BoolVar(&setAsString, "string", false, "store the value as a string")
	configResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(
		configShowCmd,
		configFlatCmd,
		configGetCmd,
		configSetCmd,
		configUnsetIndexCmd,
		configApplyCmd,
		configQueryCmd,
		configResetCmd,
	)
}
