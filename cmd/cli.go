package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/habedi/hrdesk/auth"
	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := createRootCmd()
	rootCmd.SetOut(os.Stdout)
	return run(ctx, rootCmd)
}

func run(ctx context.Context, rootCmd *cobra.Command) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	log.Error().Err(err).Msg("Command execution failed.")

	cliErr := clierr.FromError(err)
	var shown reported
	if !errors.As(err, &shown) {
		rootCmd.PrintErrln("Error:", cliErr.Message)
	}
	return cliErr.Type.ExitCode()
}

// reported marks an error the user has already been told about.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hrdesk",
		Short:         "Command-line client for the HR portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		meCmd(),
		employeesCmd(),
		departmentsCmd(),
		leavesCmd(),
		announcementsCmd(),
		dashboardCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

// addGlobalFlags registers the flags that override HRDESK_* environment variables.
func addGlobalFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "", "Base URL of the HR backend [HRDESK_BASE_URL]")
	flags.String("db-path", "", "Path of the local database for remembered logins [HRDESK_DB_PATH]")
	flags.String("session-dir", "", "Directory for session-scoped credentials [HRDESK_SESSION_DIR]")
	flags.String("redis-addr", "", "Keep remembered logins in Redis instead of the local database [HRDESK_REDIS_ADDR]")
	flags.DurationP("timeout", "T", 0, "Timeout of a single HTTP request [HRDESK_TIMEOUT]")
	flags.Duration("refresh-timeout", 0, "Timeout of a token refresh [HRDESK_REFRESH_TIMEOUT]")
	flags.Int("max-retries", -1, "Retries of idempotent requests on gateway errors [HRDESK_MAX_RETRIES]")
	flags.Float64("rps", -1, "Maximum requests per second, 0 for unlimited [HRDESK_RPS]")
}

// runE adapts a command body that needs the wired app.
func runE(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		err = fn(cmd, args, a)
		if err != nil && errors.Is(err, auth.ErrSessionExpired) && a.noticeShown.Load() {
			return reported{err}
		}
		return err
	}
}

// requireLogin fails fast when no credentials are stored.
func requireLogin(ctx context.Context, a *app) error {
	creds, _, err := a.store.Load(ctx)
	if err != nil {
		return clierr.New(clierr.Internal, "failed to read stored credentials", err)
	}
	if creds == nil {
		return clierr.New(clierr.Auth, "not logged in, run `hrdesk login` first", auth.ErrNoCredentials)
	}
	return nil
}
