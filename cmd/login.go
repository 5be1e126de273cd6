package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/habedi/hrdesk/auth"
	"github.com/habedi/hrdesk/client"
	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/habedi/hrdesk/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd signs in and stores the token pair in the session or persistent tier.
func loginCmd() *cobra.Command {
	var email string
	var remember, passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the HR portal",
		Long: "Sign in with your email and password. Without --remember the login lasts until you log out " +
			"of your desktop session. With --remember it is kept across reboots.",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				email = promptForInput(cmd, in, "Email: ")
			}
			var password string
			if passwordStdin {
				password = readLine(in)
			} else {
				password = promptForPassword(cmd, in, "Password: ")
			}

			if err := validateCredentials(email, password); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			tok, err := client.Login(cmd.Context(), a.pipeline, a.cfg.BaseURL, email, password)
			if err != nil {
				return err
			}

			tier := auth.TierSession
			if remember {
				tier = auth.TierPersistent
			}
			creds := auth.Credentials{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: tok.Expiry}
			if err := a.store.Write(cmd.Context(), creds, tier); err != nil {
				return clierr.New(clierr.Internal, "failed to store credentials", err)
			}
			log.Info().Str("tier", tier.String()).Msg("Login stored")
			cmd.Printf("Logged in as %s (%s storage).\n", email, tier)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address to sign in with")
	cmd.Flags().BoolVarP(&remember, "remember", "r", false, "Keep the login across reboots")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")

	return cmd
}

// logoutCmd revokes the refresh token (best effort) and clears both tiers.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			refresh, err := a.store.RefreshToken(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to read refresh token before logout")
			}
			if err := client.Logout(ctx, a.pipeline, a.cfg.BaseURL, refresh); err != nil {
				log.Warn().Err(err).Msg("Server-side logout failed, clearing local credentials anyway")
			}
			if err := a.store.Clear(ctx); err != nil {
				return clierr.New(clierr.Internal, "failed to remove stored credentials", err)
			}
			cmd.Println("Logged out.")
			return nil
		}),
	}
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(cmd *cobra.Command, in *bufio.Reader, prompt string) string {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	return readLine(in)
}

// promptForPassword reads a password without echo when stdin is a terminal.
func promptForPassword(cmd *cobra.Command, in *bufio.Reader, prompt string) string {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr()) // Print a newline for better formatting
		if err != nil {
			log.Error().Err(err).Msg("Failed to read password")
			return ""
		}
		return strings.TrimSpace(string(password))
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) string {
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		log.Error().Err(err).Msg("Failed to read input")
	}
	return strings.TrimSpace(line)
}

// validateCredentials checks that the email and password are not empty.
func validateCredentials(email, password string) error {
	if err := validation.ValidateNonEmptyString("email", email); err != nil {
		return err
	}
	return validation.ValidateNonEmptyString("password", password)
}
