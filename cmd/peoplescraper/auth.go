package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"peoplescraper/pkg/auth"
	"peoplescraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the sign-in account",
	Long: `Manage stored sign-in credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables USERNAME_LINKEDIN and PASSWORD_LINKEDIN (read only)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [identifier]",
	Short: "Store an account securely",
	Long: `Store the sign-in e-mail and password of an account in the system
keychain or the encrypted credentials file. The password is read without
echo.`,
	Example: `  # Interactive login
  peoplescraper auth login

  # Login with the e-mail given
  peoplescraper auth login me@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <identifier>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List stored accounts with masked passwords, most recently stored first.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func credentialManager(cmd *cobra.Command) (*auth.Manager, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	manager, err := auth.NewManager(cfg.Credentials.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	return manager, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager(cmd)
	if err != nil {
		return err
	}

	var identifier string
	if len(args) > 0 {
		identifier = args[0]
	}

	reader := bufio.NewReader(os.Stdin)
	w := ui.Output()

	if identifier == "" {
		fmt.Fprint(w, "E-mail: ")
		identifier, err = readLine(reader)
		if err != nil {
			return fmt.Errorf("failed to read e-mail: %w", err)
		}
	}
	if identifier == "" {
		return errors.New("an e-mail is required")
	}

	if existing, _ := manager.Retrieve(identifier); existing != nil {
		fmt.Fprintf(w, "Account '%s' already exists. Update it? (y/N): ", identifier)
		if !confirm(reader) {
			return nil
		}
	}

	fmt.Fprint(w, "Password: ")
	passphrase, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if passphrase == "" {
		return errors.New("a password is required")
	}

	account := &auth.Account{Identifier: identifier, Passphrase: passphrase}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + identifier)
	if auth.IsKeyringAvailable() {
		fmt.Fprintln(w, "Stored in the system keychain.")
	} else {
		fmt.Fprintln(w, "Stored in the encrypted credentials file.")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager(cmd)
	if err != nil {
		return err
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager(cmd)
	if err != nil {
		return err
	}
	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'peoplescraper auth login' to add one")
		return nil
	}
	printAccounts(ui.Output(), accounts)
	return nil
}

func printAccounts(w io.Writer, accounts []*auth.Account) {
	t := ui.NewTable(w)
	t.AppendHeader(table.Row{"#", "Identifier", "Password", "Last modified"})
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		modified := "-"
		if !sanitized.LastModified.IsZero() {
			modified = sanitized.LastModified.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{i + 1, sanitized.Identifier, sanitized.Passphrase, modified})
	}
	t.Render()
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func confirm(r *bufio.Reader) bool {
	answer, _ := readLine(r)
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// readPassword reads without echo from a terminal and falls back to a
// plain line otherwise.
func readPassword(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output())
		if err == nil {
			return string(password), nil
		}
	}
	return readLine(r)
}
