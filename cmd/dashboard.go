package cmd

import (
	"context"
	"errors"
	"strconv"

	"github.com/habedi/hrdesk/auth"
	"github.com/habedi/hrdesk/client"
	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/habedi/hrdesk/pkg/pool"
	"github.com/habedi/hrdesk/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// dashboardSection is one independently fetched part of the dashboard.
type dashboardSection struct {
	name  string
	fetch func(ctx context.Context, api *client.API) (string, error)
}

var dashboardSections = []dashboardSection{
	{"Signed in as", func(ctx context.Context, api *client.API) (string, error) {
		me, err := api.Me(ctx)
		if err != nil {
			return "", err
		}
		return me.Name + " <" + me.Email + ">", nil
	}},
	{"Employees", func(ctx context.Context, api *client.API) (string, error) {
		list, err := api.ListEmployees(ctx, 0)
		return strconv.Itoa(len(list)), err
	}},
	{"Departments", func(ctx context.Context, api *client.API) (string, error) {
		list, err := api.ListDepartments(ctx)
		return strconv.Itoa(len(list)), err
	}},
	{"Pending leave requests", func(ctx context.Context, api *client.API) (string, error) {
		list, err := api.ListLeaveRequests(ctx, client.LeavePending)
		return strconv.Itoa(len(list)), err
	}},
	{"Announcements", func(ctx context.Context, api *client.API) (string, error) {
		list, err := api.ListAnnouncements(ctx)
		return strconv.Itoa(len(list)), err
	}},
}

// dashboardCmd fetches every section concurrently over the shared session, so an
// expired access token is refreshed once for all of them.
func dashboardCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show an overview of the HR portal",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := validation.ValidateWorkerCount(workers); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}

			bar := progressbar.NewOptions(len(dashboardSections),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Loading dashboard..."),
				progressbar.OptionSetWidth(20),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			results := pool.Map(cmd.Context(), dashboardSections, workers,
				func(ctx context.Context, s dashboardSection) (string, error) {
					return s.fetch(ctx, a.api)
				},
				func() { _ = bar.Add(1) },
			)
			_ = bar.Finish()

			table := newTable(cmd.OutOrStdout(), []string{"Section", "Value"})
			var failed []error
			for i, r := range results {
				value := r.Value
				if r.Err != nil {
					// Sections share the session, so its end is reported once.
					if errors.Is(r.Err, auth.ErrSessionExpired) {
						return r.Err
					}
					log.Error().Err(r.Err).Str("section", dashboardSections[i].name).Msg("Dashboard section failed")
					failed = append(failed, r.Err)
					value = "unavailable: " + clierr.FromError(r.Err).Message
				}
				table.Append([]string{dashboardSections[i].name, value})
			}
			table.Render()

			if len(failed) == len(results) {
				return failed[0]
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of sections fetched in parallel")
	return cmd
}
