package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/secrets"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

// keystore is replaced in tests.
var keystore = func() secrets.Store { return secrets.DefaultKeystore(cfg.Dir()) }

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the chat assistant API token",
	Long: "The token is kept in the OS keychain (or an encrypted file when no keychain is available).\n" +
		"Setting " + secrets.EnvToken + " overrides the stored token.",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the assistant token (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			token = line
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return errors.New("token is empty")
		}
		if err := keystore().Set(secrets.TokenRef, token); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Assistant token stored"))
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored assistant token",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := keystore().Delete(secrets.TokenRef)
		switch {
		case errors.Is(err, secrets.ErrNotFound):
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("No token stored"))
			return nil
		case err != nil:
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Assistant token removed"))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd)
}
