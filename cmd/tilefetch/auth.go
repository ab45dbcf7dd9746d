package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tilefetch/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Mapbox access tokens",
	Long: `Manage stored Mapbox access tokens.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never commit a token to a config file in version control!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store an access token",
	Long: `Store a Mapbox access token under a profile name.

Without a profile name the token is stored as 'default'. The token is read
without echo when stdin is a terminal.`,
	Example: `  # Store the default token
  tilefetch auth login

  # Store a second token and use it for one run
  tilefetch auth login work
  tilefetch fetch --profile work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored access token",
	Long: `Remove a stored access token.

Without a profile name the only stored profile is removed after
confirmation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Long:  `List stored profiles with masked tokens.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	console := newConsole()
	out := cmd.OutOrStdout()

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := auth.DefaultProfile
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowTokenGuide(out)
	fmt.Fprintln(out)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "⚠️  Profile '%s' already exists. Replace its token? (y/N): ", name)
		if !confirm(reader) {
			return nil
		}
	}

	var token string
	for {
		fmt.Fprintf(out, "Access token for '%s': ", name)
		token, err = readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		if err := auth.ValidateToken(token); err != nil {
			console.Error("❌ That doesn't look like a Mapbox token", err)
			fmt.Fprint(out, "Try again? (Y/n): ")
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) == "n" {
				return err
			}
			continue
		}
		break
	}

	cred := &auth.Credential{
		Profile:      name,
		AccessToken:  token,
		LastModified: time.Now(),
	}
	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	console.Success(fmt.Sprintf("Token stored for profile '%s' (%s)", name, auth.MaskToken(token)))
	if name != auth.DefaultProfile {
		fmt.Fprintf(out, "\nUse it with: tilefetch fetch --profile %s\n", name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	console := newConsole()
	out := cmd.OutOrStdout()

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		creds, err := manager.List()
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		switch len(creds) {
		case 0:
			console.Warning("No stored profiles")
			return nil
		case 1:
			name = creds[0].Profile
			fmt.Fprintf(out, "Remove profile '%s'? (y/N): ", name)
			if !confirm(bufio.NewReader(os.Stdin)) {
				return nil
			}
		default:
			return fmt.Errorf("%d profiles stored, name the one to remove", len(creds))
		}
	}

	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove profile %s: %w", name, err)
	}
	console.Success("Profile removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	console := newConsole()

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(creds) == 0 {
		console.Info("No stored profiles", "use 'tilefetch auth login' to add one")
		return nil
	}

	console.Highlight("Stored Profiles")
	printCredentials(cmd.OutOrStdout(), creds)
	return nil
}

func printCredentials(w io.Writer, creds []*auth.Credential) {
	for i, cred := range creds {
		sanitized := auth.SanitizeCredential(cred)
		fmt.Fprintf(w, "%d. Profile: %s\n", i+1, sanitized.Profile)
		fmt.Fprintf(w, "   Token: %s\n", sanitized.AccessToken)
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(w, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
}

func confirm(reader *bufio.Reader) bool {
	input, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
