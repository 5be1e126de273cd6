package cmd

import (
	"time"

	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/spf13/cobra"
)

// statusCmd shows where the credentials are stored and when the access token expires.
// It does not contact the server.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current login state",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			creds, tier, err := a.store.Load(cmd.Context())
			if err != nil {
				return clierr.New(clierr.Internal, "failed to read stored credentials", err)
			}
			if creds == nil {
				cmd.Println("Not logged in.")
				return nil
			}

			cmd.Println("Logged in:", "yes")
			cmd.Println("Storage:", tier)
			cmd.Println("Server:", a.cfg.BaseURL)
			if exp, ok := creds.Expiry(); ok {
				state := "valid"
				if time.Now().After(exp) {
					state = "expired, will refresh on next request"
				}
				cmd.Printf("Access token expires: %s (%s)\n", exp.Local().Format(time.RFC1123), state)
			} else {
				cmd.Println("Access token expires: unknown")
			}
			if creds.RefreshToken == "" {
				cmd.Println("Refresh token: none, you will need to log in again when the access token expires")
			}
			return nil
		}),
	}
}
