package cmd

import (
	"fmt"
	"strconv"

	"github.com/habedi/hrdesk/client"
	"github.com/habedi/hrdesk/pkg/clierr"
	"github.com/habedi/hrdesk/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			me, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("ID: %d\n", me.ID)
			cmd.Printf("Name: %s\n", me.Name)
			cmd.Printf("Email: %s\n", me.Email)
			cmd.Printf("Role: %s\n", me.Role)
			if me.EmployeeID != nil {
				cmd.Printf("Employee ID: %d\n", *me.EmployeeID)
			}
			return nil
		}),
	}
}

// employeesCmd groups the employee directory commands.
func employeesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Browse the employee directory",
	}
	cmd.AddCommand(employeesListCmd(), employeesShowCmd())
	return cmd
}

func employeesListCmd() *cobra.Command {
	var departmentID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if departmentID != 0 {
				if err := validation.ValidateID("department ID", departmentID); err != nil {
					return clierr.New(clierr.Validation, err.Error(), err)
				}
			}
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			employees, err := a.api.ListEmployees(cmd.Context(), departmentID)
			if err != nil {
				return err
			}
			if len(employees) == 0 {
				cmd.Println("No employees found.")
				return nil
			}
			renderEmployees(cmd, employees)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&departmentID, "department", "d", 0, "Only list employees of this department ID")
	return cmd
}

func renderEmployees(cmd *cobra.Command, employees []client.Employee) {
	table := newTable(cmd.OutOrStdout(), []string{"ID", "Name", "Position", "Department", "Status"})
	for _, e := range employees {
		table.Append([]string{
			strconv.Itoa(e.ID),
			oneLine(e.FullName()),
			orDash(e.Position),
			orDash(e.Department),
			orDash(e.Status),
		})
	}
	table.Render()
	log.Info().Msgf("Listed %d employees", len(employees))
}

func employeesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one employee",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := strconv.Atoi(args[0])
			if err == nil {
				err = validation.ValidateID("employee ID", id)
			}
			if err != nil {
				return clierr.New(clierr.Validation, fmt.Sprintf("invalid employee ID %q", args[0]), err)
			}
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			e, err := a.api.GetEmployee(cmd.Context(), id)
			if err != nil {
				return err
			}
			cmd.Println("Employee Information:")
			cmd.Printf("ID: %d\n", e.ID)
			cmd.Printf("Name: %s\n", e.FullName())
			cmd.Printf("Email: %s\n", orDash(e.Email))
			cmd.Printf("Position: %s\n", orDash(e.Position))
			cmd.Printf("Department: %s\n", orDash(e.Department))
			cmd.Printf("Status: %s\n", orDash(e.Status))
			if e.HireDate != nil {
				cmd.Printf("Hire date: %s\n", e.HireDate.Format(validation.DateLayout))
			}
			return nil
		}),
	}
}

func departmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "Browse departments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List departments",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			depts, err := a.api.ListDepartments(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), []string{"ID", "Name", "Manager ID", "Employees"})
			for _, d := range depts {
				table.Append([]string{strconv.Itoa(d.ID), oneLine(d.Name), optionalInt(d.ManagerID), strconv.Itoa(d.EmployeeCount)})
			}
			table.Render()
			return nil
		}),
	})
	return cmd
}

// leavesCmd groups the leave request commands.
func leavesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaves",
		Short: "List and submit leave requests",
	}
	cmd.AddCommand(leavesListCmd(), leavesRequestCmd())
	return cmd
}

func leavesListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leave requests",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := validation.ValidateLeaveStatus(status); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			leaves, err := a.api.ListLeaveRequests(cmd.Context(), status)
			if err != nil {
				return err
			}
			if len(leaves) == 0 {
				cmd.Println("No leave requests found.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), []string{"ID", "Employee", "Type", "From", "To", "Status"})
			for _, l := range leaves {
				table.Append([]string{
					strconv.Itoa(l.ID),
					strconv.Itoa(l.EmployeeID),
					l.Type,
					l.StartDate,
					l.EndDate,
					l.Status,
				})
			}
			table.Render()
			return nil
		}),
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status [pending, approved, rejected]")
	return cmd
}

func leavesRequestCmd() *cobra.Command {
	var in client.NewLeaveRequest
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Submit a leave request",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := validation.ValidateNonEmptyString("type", in.Type); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := validation.ValidateDateRange(in.StartDate, in.EndDate); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			created, err := a.api.CreateLeaveRequest(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Leave request %d submitted (%s, %s to %s), status: %s\n",
				created.ID, created.Type, created.StartDate, created.EndDate, created.Status)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&in.Type, "type", "t", "vacation", "Kind of leave, e.g. vacation or sick")
	cmd.Flags().StringVar(&in.StartDate, "from", "", "First day of leave (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.EndDate, "to", "", "Last day of leave (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "Optional note for the approver")
	return cmd
}

func announcementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "announcements",
		Short: "Read company announcements",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List announcements",
		RunE: runE(func(cmd *cobra.Command, args []string, a *app) error {
			if err := requireLogin(cmd.Context(), a); err != nil {
				return err
			}
			news, err := a.api.ListAnnouncements(cmd.Context())
			if err != nil {
				return err
			}
			if len(news) == 0 {
				cmd.Println("No announcements.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), []string{"ID", "Published", "Title"})
			for _, n := range news {
				table.Append([]string{strconv.Itoa(n.ID), n.PublishedAt.Local().Format(validation.DateLayout), oneLine(n.Title)})
			}
			table.Render()
			return nil
		}),
	})
	return cmd
}
