package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"staff-ledger/internal/models"

	"github.com/spf13/cobra"
)

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid %s %q", what, raw)
	}
	return id, nil
}

func newEmployeeCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "employee",
		Aliases: []string{"employees"},
		Short:   "Manage employees",
	}
	cmd.AddCommand(
		newEmployeeAddCommand(g),
		newEmployeeListCommand(g),
		newEmployeeShowCommand(g),
		newEmployeeUpdateCommand(g),
		newEmployeeDeleteCommand(g),
		newEmployeeReactivateCommand(g),
		newEmployeeCheckIDCommand(g),
	)
	return cmd
}

func bindEmployeeFlags(cmd *cobra.Command, in *models.EmployeeInput) {
	f := cmd.Flags()
	f.Int64Var(&in.NationalID, "national-id", 0, "National identification number")
	f.StringVar(&in.GivenName, "given-name", "", "Given name")
	f.StringVar(&in.FamilyName, "family-name", "", "Family name")
	f.StringVar(&in.Address, "address", "", "Postal address")
	f.Int64Var(&in.Phone, "phone", 0, "Phone number")
	f.IntVar(&in.Age, "age", 0, "Age in years")
}

func newEmployeeAddCommand(g *globals) *cobra.Command {
	var in models.EmployeeInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				e, err := a.handlers.AddEmployee(ctx, in)
				if err != nil {
					return err
				}
				if e == nil {
					return exitErrorf(ExitCodeConflict, "an employee with national id %d already exists", in.NationalID)
				}
				return g.emit(e, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Employee %s %s added with ID %d\n", e.GivenName, e.FamilyName, e.ID)
					return err
				})
			})
		},
	}
	bindEmployeeFlags(cmd, &in)
	return cmd
}

func newEmployeeListCommand(g *globals) *cobra.Command {
	var inactive bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				list := a.handlers.ListEmployees
				if inactive {
					list = a.handlers.ListInactiveEmployees
				}
				employees, err := list(ctx)
				if err != nil {
					return err
				}
				return g.emit(employees, func(w io.Writer) error {
					return writeEmployees(w, employees)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&inactive, "inactive", false, "List deactivated employees instead")
	return cmd
}

func writeEmployees(w io.Writer, list []models.Employee) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNATIONAL ID\tNAME\tPHONE\tAGE\tREGISTERED")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s %s\t%d\t%d\t%s\n",
			e.ID, e.NationalID, e.GivenName, e.FamilyName, e.Phone, e.Age, e.RegisteredAt.Format(models.DateLayout))
	}
	return tw.Flush()
}

func newEmployeeShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an active employee with their expense total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				e, err := a.handlers.GetEmployee(ctx, id)
				if err != nil {
					return err
				}
				if e == nil {
					return exitErrorf(ExitCodeNotFound, "employee %d not found", id)
				}
				total, err := a.handlers.TotalExpenses(ctx, id)
				if err != nil {
					return err
				}
				payload := struct {
					*models.Employee
					TotalExpenses float64 `json:"total_expenses"`
				}{e, total}
				return g.emit(payload, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s %s (national id %d)\nAddress: %s\nPhone: %d\nAge: %d\nTotal expenses: %s\n",
						e.GivenName, e.FamilyName, e.NationalID, e.Address, e.Phone, e.Age, formatAmount(total))
					return err
				})
			})
		},
	}
}

func newEmployeeUpdateCommand(g *globals) *cobra.Command {
	var in models.EmployeeInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Overwrite an employee's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				ok, err := a.handlers.UpdateEmployee(ctx, id, in)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeConflict, "employee %d was not updated: missing, or national id %d is taken", id, in.NationalID)
				}
				return g.emit(map[string]any{"updated": true, "id": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Employee %d updated\n", id)
					return err
				})
			})
		},
	}
	bindEmployeeFlags(cmd, &in)
	return cmd
}

// newEmployeeToggleCommand builds delete and reactivate, which differ only in the call.
func newEmployeeToggleCommand(g *globals, use, short, done string, call func(context.Context, *app, int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				ok, err := call(ctx, a, id)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeNotFound, "employee %d not found", id)
				}
				return g.emit(map[string]any{done: true, "id": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Employee %d %s\n", id, done)
					return err
				})
			})
		},
	}
}

func newEmployeeDeleteCommand(g *globals) *cobra.Command {
	return newEmployeeToggleCommand(g, "delete", "Deactivate an employee, keeping their expenses", "deactivated",
		func(ctx context.Context, a *app, id int64) (bool, error) { return a.handlers.DeleteEmployee(ctx, id) })
}

func newEmployeeReactivateCommand(g *globals) *cobra.Command {
	return newEmployeeToggleCommand(g, "reactivate", "Reactivate a deactivated employee", "reactivated",
		func(ctx context.Context, a *app, id int64) (bool, error) { return a.handlers.ReactivateEmployee(ctx, id) })
}

func newEmployeeCheckIDCommand(g *globals) *cobra.Command {
	var exclude int64
	cmd := &cobra.Command{
		Use:   "check-id <national-id>",
		Short: "Report whether a national id is already registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nationalID, err := parseID(args[0], "national id")
			if err != nil {
				return err
			}
			var excludeID *int64
			if exclude > 0 {
				excludeID = &exclude
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				taken, err := a.handlers.CheckNationalID(ctx, nationalID, excludeID)
				if err != nil {
					return err
				}
				return g.emit(map[string]bool{"exists": taken}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, taken)
					return err
				})
			})
		},
	}
	cmd.Flags().Int64Var(&exclude, "exclude", 0, "Employee id to ignore, for edits")
	return cmd
}
