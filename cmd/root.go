package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/config"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/avagen/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
	testnet bool
	mainnet bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "avagen",
	Short: "Build Avalanche L1 genesis files",
	Long: `avagen: guided genesis builder for Avalanche L1 chains.

  Edit a draft configuration step by step or with the chat assistant,
  validate it, and export a subnet-evm genesis.json.

Global flags --testnet and --mainnet override the configured network for a
single invocation (testnet means Fuji). Persist with: avagen settings set network <name>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		ui.Verbose = verbose
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.Network = "fuji"
		}
		if mainnet {
			cfg.Network = "mainnet"
		}
		ui.Debugf("config dir %s, network %s", cfg.Dir(), cfg.Network)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	// AVAGEN_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv("AVAGEN_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.avagen)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use Fuji for this invocation")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use Mainnet for this invocation")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		initCmd,
		settingsCmd,
		configCmd,
		wizardCmd,
		genesisCmd,
		chatCmd,
		progressCmd,
		tokenCmd,
		networkCmd,
	)
}
