package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hdntran/meetscribe-cli/credentials"
)

// Auth command flags.
var (
	authAPIKey         string
	authToken          string
	authServer         string
	authNonInteractive bool
)

// AuthCmd groups the credential commands. Credentials are encrypted at rest;
// environment variables override whatever is stored.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage server credentials",
	Long: `Store, inspect, and remove credentials for the transcription server.

Two credential kinds are accepted: a long-lived API key (--api-key or
MEETSCRIBE_API_KEY) and a JWT session token (--token or MEETSCRIBE_TOKEN).
Environment variables always win over the stored credential.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for the server",
	Long: `Store a credential for the transcription server.

The credential is taken from flags first, then the environment, and finally
an interactive hidden prompt. Pass --non-interactive to fail instead of
prompting.

Examples:
  meetscribe auth login
  meetscribe auth login --api-key ms-abc123...
  MEETSCRIBE_TOKEN=eyJ... meetscribe auth login`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE:  runLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credential is active",
	RunE:  runAuthStatus,
}

func init() {
	loginCmd.Flags().StringVar(&authAPIKey, "api-key", "", "API key for authentication")
	loginCmd.Flags().StringVar(&authToken, "token", "", "JWT token for authentication")
	loginCmd.Flags().StringVar(&authServer, "server", "", "Server URL to associate with the credential")
	loginCmd.Flags().BoolVar(&authNonInteractive, "non-interactive", false, "Fail instead of prompting for input")

	AuthCmd.AddCommand(loginCmd, logoutCmd, authStatusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}
	out := cmd.OutOrStdout()

	creds, source, err := resolveLoginCredential(out)
	if err != nil {
		return err
	}
	creds.ServerURL = authServer

	if err := validateCredential(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintf(out, "Logged in (%s from %s).\n", creds.AuthType, source)
	if creds.AuthType == credentials.AuthTypeAPIKey {
		fmt.Fprintf(out, "  API key: %s\n", credentials.MaskCredential(creds.APIKey))
	} else {
		fmt.Fprintf(out, "  Token:   %s\n", credentials.MaskToken(creds.Token))
	}
	if creds.ServerURL != "" {
		fmt.Fprintf(out, "  Server:  %s\n", creds.ServerURL)
	}
	if credPath, err := credentials.CredentialsPath(); err == nil {
		fmt.Fprintf(out, "Stored in %s\n", credPath)
	}
	return nil
}

// resolveLoginCredential picks the credential in precedence order: flags,
// environment, interactive prompt.
func resolveLoginCredential(out io.Writer) (*credentials.Credentials, string, error) {
	switch {
	case authAPIKey != "":
		return &credentials.Credentials{
			AuthType: credentials.AuthTypeAPIKey,
			APIKey:   authAPIKey,
		}, "flag", nil
	case authToken != "":
		return &credentials.Credentials{
			AuthType: credentials.AuthTypeToken,
			Token:    authToken,
		}, "flag", nil
	}

	if envKey := os.Getenv("MEETSCRIBE_API_KEY"); envKey != "" {
		return &credentials.Credentials{
			AuthType: credentials.AuthTypeAPIKey,
			APIKey:   envKey,
		}, "MEETSCRIBE_API_KEY", nil
	}
	if envToken := os.Getenv("MEETSCRIBE_TOKEN"); envToken != "" {
		return &credentials.Credentials{
			AuthType: credentials.AuthTypeToken,
			Token:    envToken,
		}, "MEETSCRIBE_TOKEN", nil
	}

	if authNonInteractive {
		return nil, "", fmt.Errorf("no credentials provided and --non-interactive is set")
	}

	fmt.Fprintln(out, "Enter an API key, or press Enter to use a JWT token instead.")
	apiKey, err := promptSecret(out, "API key: ")
	if err != nil {
		return nil, "", err
	}
	if apiKey != "" {
		return &credentials.Credentials{
			AuthType: credentials.AuthTypeAPIKey,
			APIKey:   apiKey,
		}, "prompt", nil
	}

	token, err := promptSecret(out, "JWT token: ")
	if err != nil {
		return nil, "", err
	}
	if token == "" {
		return nil, "", fmt.Errorf("no credentials provided")
	}
	return &credentials.Credentials{
		AuthType: credentials.AuthTypeToken,
		Token:    token,
	}, "prompt", nil
}

// promptSecret reads a line without echo, falling back to plain stdin when no
// terminal is attached (piped input, tests).
func promptSecret(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err == nil {
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func validateCredential(creds *credentials.Credentials) error {
	switch creds.AuthType {
	case credentials.AuthTypeAPIKey:
		if len(creds.APIKey) < 8 {
			return fmt.Errorf("API key is missing or too short")
		}
	case credentials.AuthTypeToken:
		// header.payload.signature
		if strings.Count(creds.Token, ".") != 2 {
			return fmt.Errorf("token does not look like a JWT")
		}
	default:
		return fmt.Errorf("unknown authentication type %q", creds.AuthType)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}
	out := cmd.OutOrStdout()

	if !store.Exists() {
		fmt.Fprintln(out, "No stored credentials.")
		return nil
	}
	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}
	fmt.Fprintln(out, "Stored credentials removed.")

	for _, env := range []string{"MEETSCRIBE_API_KEY", "MEETSCRIBE_TOKEN"} {
		if os.Getenv(env) != "" {
			fmt.Fprintf(out, "Note: %s is still set and remains active; unset it to fully log out.\n", env)
		}
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}
	out := cmd.OutOrStdout()

	envAPIKey := os.Getenv("MEETSCRIBE_API_KEY")
	envToken := os.Getenv("MEETSCRIBE_TOKEN")
	fromEnv := envAPIKey != "" || envToken != ""

	if envAPIKey != "" {
		fmt.Fprintf(out, "Environment: MEETSCRIBE_API_KEY %s (active)\n", credentials.MaskCredential(envAPIKey))
	}
	if envToken != "" {
		fmt.Fprintf(out, "Environment: MEETSCRIBE_TOKEN %s", credentials.MaskToken(envToken))
		if envAPIKey != "" {
			fmt.Fprint(out, " (shadowed by MEETSCRIBE_API_KEY)")
		} else {
			fmt.Fprint(out, " (active)")
		}
		fmt.Fprintln(out)
	}

	creds, err := store.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			fmt.Fprintln(out, "Stored: none")
			if !fromEnv {
				fmt.Fprintln(out, "Not authenticated. Run 'meetscribe auth login'.")
			}
			return nil
		}
		return fmt.Errorf("loading credentials: %w", err)
	}

	label := "active"
	if fromEnv {
		label = "shadowed by environment"
	}
	switch creds.AuthType {
	case credentials.AuthTypeAPIKey:
		fmt.Fprintf(out, "Stored: API key %s (%s), key ID %s\n",
			credentials.MaskCredential(creds.APIKey), label,
			credentials.GenerateAPIKeyID(creds.APIKey))
	case credentials.AuthTypeToken:
		fmt.Fprintf(out, "Stored: token %s (%s)\n", credentials.MaskToken(creds.Token), label)
		if !creds.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "  Expires: %s (%s)\n",
				creds.ExpiresAt.Format(time.RFC3339),
				credentials.FormatExpiry(creds.ExpiresAt))
		}
	}
	if creds.Subject != "" {
		fmt.Fprintf(out, "  Subject: %s\n", creds.Subject)
	}
	if creds.ServerURL != "" {
		fmt.Fprintf(out, "  Server:  %s\n", creds.ServerURL)
	}
	fmt.Fprintf(out, "  Updated: %s\n", creds.LastUpdated.Format(time.RFC3339))

	if creds.AuthType == credentials.AuthTypeToken && !creds.ExpiresAt.IsZero() {
		switch {
		case time.Now().After(creds.ExpiresAt):
			fmt.Fprintln(out, "Warning: stored token has expired. Run 'meetscribe auth login' again.")
		case time.Until(creds.ExpiresAt) < time.Hour:
			fmt.Fprintln(out, "Warning: token expires within the hour.")
		}
	}
	return nil
}
