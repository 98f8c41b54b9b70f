package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fanfoudl/pkg/auth"
	"fanfoudl/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage saved session cookies",
	Long: `Save the Cookie header of a signed-in browser under a name so it does not
have to be pasted on every crawl.

Cookies are stored in the system keychain when available, otherwise in an
encrypted file. FANFOUDL_COOKIE is also honored but never written.

fanfoudl never signs in or refreshes a session; save a fresh cookie when
the old one expires.`,
}

var authSaveCmd = &cobra.Command{
	Use:     "save <name>",
	Short:   "Save a cookie under a name",
	Example: `  fanfoudl auth save alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAuthSave,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved cookies with their values masked",
	RunE:  runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved cookie",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSaveCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthSave(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := args[0]
	p := newPrompter(os.Stdin, cmd.OutOrStdout())

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !p.confirm(fmt.Sprintf("A cookie named %q already exists. Replace it?", name)) {
			return nil
		}
	}

	raw, err := p.cookie()
	if err != nil {
		return err
	}

	account := &auth.Account{Name: name, Cookie: raw}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Cookie saved: " + name)
	ui.PrintInfo("Stored as", auth.SanitizeAccount(account).Cookie)
	fmt.Fprintf(cmd.OutOrStdout(), "\nUse it with:\n  fanfoudl crawl <album-url> --account %s\n", name)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No saved cookies", "use 'fanfoudl auth save <name>' to add one")
		return nil
	}

	ui.PrintHighlight("Saved Cookies")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "   Cookie: %s\n", sanitized.Cookie)
		fmt.Fprintf(cmd.OutOrStdout(), "   Saved: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Cookie removed: " + args[0])
	return nil
}
