package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/genesis"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var (
	exportOut     string
	exportStdout  bool
	watchInterval time.Duration
)

var errDraftNotReady = errors.New("draft has blocking errors")

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Validate and export the genesis file",
}

var genesisValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "List errors and warnings in the draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		res := checkDraft(d.SnapshotNested())
		printResult(cmd.OutOrStdout(), res)
		if !res.Ready() {
			return errDraftNotReady
		}
		return nil
	},
}

var genesisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the genesis file",
	Long: `Write the subnet-evm genesis for the draft. The file is named
genesis-<chainId>.json in the configured output directory unless --out is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		doc, data, err := exportDraft(d)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if exportStdout {
			_, err := out.Write(data)
			return err
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(cfg.OutputDir, genesis.FileName(doc.Config.ChainID))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing genesis: %w", err)
		}
		fmt.Fprintln(out, ui.Success("Genesis written to "+ui.Path(path)))
		fmt.Fprintln(out, ui.Meta("keccak256 ")+ui.Addr(genesis.Hash(data)))
		return nil
	},
}

var genesisCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the genesis JSON to the clipboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		_, data, err := exportDraft(d)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(string(data)); err != nil {
			return fmt.Errorf("clipboard unavailable: %w (use `avagen genesis export --stdout`)", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Copied %d bytes to the clipboard", len(data))))
		return nil
	},
}

var genesisPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Summarise the draft and its genesis fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPreview()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Draft", p.Summary))
		printResult(out, genesis.Result{Errors: p.Errors, Warnings: p.Warnings})
		if p.Hash != "" {
			fmt.Fprintln(out, ui.Meta("keccak256 ")+ui.Addr(p.Hash))
		}
		return nil
	},
}

var genesisWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live preview that follows edits made elsewhere",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchInterval < 200*time.Millisecond {
			return fmt.Errorf("--interval must be at least 200ms")
		}
		_, err := ui.NewPreviewDashboard(watchInterval, loadPreview).Run()
		return err
	},
}

// loadPreview re-reads the draft from disk so edits from other commands show up.
func loadPreview() (*ui.Preview, error) {
	d, err := openDraft(cfg)
	if err != nil {
		return nil, err
	}
	snap := d.SnapshotNested()
	form, res := genesis.Check(snap)
	p := &ui.Preview{
		Summary:  summary(snap, form),
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	if res.Ready() {
		doc, err := genesis.Build(form, buildOptions())
		if err != nil {
			return nil, err
		}
		data, err := genesis.Encode(doc)
		if err != nil {
			return nil, err
		}
		p.Hash = genesis.Hash(data)
	}
	return p, nil
}

func summary(snap *confstore.Node, f *genesis.Form) [][2]string {
	show := func(path string) string {
		if l, ok := confstore.Lookup(snap, path).Leaf(); ok && l.Kind() != confstore.LeafNull && l.String() != "" {
			return l.String()
		}
		return "-"
	}
	return [][2]string{
		{"Network", cfg.Network},
		{"Chain name", show("chainName")},
		{"EVM chain ID", show("evmChainId")},
		{"Subnet ID", show("subnetId")},
		{"Gas limit", show("gasLimit")},
		{"Min base fee (wei)", show("feeConfig.minBaseFee")},
		{"Allocations", fmt.Sprintf("%d", len(f.Allocations))},
		{"Token decimals", fmt.Sprintf("%d", cfg.TokenDecimals)},
	}
}

func printResult(w io.Writer, res genesis.Result) {
	if res.Ready() {
		fmt.Fprintln(w, ui.Success("No blocking errors"))
	} else {
		fmt.Fprintln(w, ui.StyleError.Render(fmt.Sprintf("%d error(s)", len(res.Errors))))
		fmt.Fprint(w, ui.IssueList(res.ErrorPaths(), res.Errors, ui.Err))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, ui.StyleWarning.Render(fmt.Sprintf("%d warning(s)", len(res.Warnings))))
		fmt.Fprint(w, ui.IssueList(res.WarningPaths(), res.Warnings, ui.Warn))
	}
}

func init() {
	genesisExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: <output_dir>/genesis-<chainId>.json)")
	genesisExportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "print the genesis instead of writing a file")
	genesisWatchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval")
	genesisCmd.AddCommand(genesisValidateCmd, genesisExportCmd, genesisCopyCmd, genesisPreviewCmd, genesisWatchCmd)
}
