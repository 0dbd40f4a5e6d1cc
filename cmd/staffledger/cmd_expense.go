package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"staff-ledger/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func formatAmount(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

func newExpenseCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"expenses"},
		Short:   "Record and review expenses",
	}
	cmd.AddCommand(
		newExpenseAddCommand(g),
		newExpenseBatchCommand(g),
		newExpenseListCommand(g),
		newExpenseUpdateCommand(g),
		newExpenseDeleteCommand(g),
		newExpenseTotalCommand(g),
	)
	return cmd
}

func newExpenseAddCommand(g *globals) *cobra.Command {
	var in models.ExpenseInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record one expense for an active employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Date == "" {
				in.Date = today()
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				e, err := a.handlers.AddExpense(ctx, in)
				if err != nil {
					return err
				}
				if e == nil {
					return exitErrorf(ExitCodeNotFound, "employee %d not found or inactive", in.EmployeeID)
				}
				return g.emit(e, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Expense %d recorded: %s %s on %s\n", e.ID, e.Description, formatAmount(e.Amount), e.Date)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.EmployeeID, "employee", 0, "Employee id")
	f.Float64Var(&in.Amount, "amount", 0, "Amount")
	f.StringVar(&in.Description, "description", "", "What the expense was for")
	f.StringVar(&in.Date, "date", "", "Date as YYYY-MM-DD (default today)")
	f.StringVar(&in.Category, "category", "", "Optional category tag")
	f.StringVar(&in.Route, "route", "", "Route or trip the expense belongs to")
	return cmd
}

func newExpenseBatchCommand(g *globals) *cobra.Command {
	var (
		employeeID int64
		date       string
		route      string
		file       string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: `Record several "Concept: amount" entries in one transaction`,
		Long: `Reads entries such as "Fuel: 12.50" separated by newlines, commas or
semicolons from --file or stdin and stores them all or none.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				date = today()
			}
			var text string
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read batch file: %w", err)
				}
				text = string(b)
			} else {
				var err error
				if text, err = g.prompt.All(); err != nil {
					return fmt.Errorf("read batch from stdin: %w", err)
				}
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				e, err := a.handlers.GetEmployee(ctx, employeeID)
				if err != nil {
					return err
				}
				if e == nil {
					return exitErrorf(ExitCodeNotFound, "employee %d not found or inactive", employeeID)
				}
				n, err := a.handlers.AddExpenseText(ctx, employeeID, date, route, text)
				if err != nil {
					return err
				}
				return g.emit(map[string]int{"stored": n}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Stored %d expenses for %s %s\n", n, e.GivenName, e.FamilyName)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&employeeID, "employee", 0, "Employee id")
	f.StringVar(&date, "date", "", "Date for every entry as YYYY-MM-DD (default today)")
	f.StringVar(&route, "route", "", "Route shared by every entry")
	f.StringVar(&file, "file", "", "Read entries from this file instead of stdin")
	return cmd
}

func newExpenseListCommand(g *globals) *cobra.Command {
	var employeeID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *int64
			if employeeID > 0 {
				filter = &employeeID
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				list, err := a.handlers.ListExpenses(ctx, filter)
				if err != nil {
					return err
				}
				return g.emit(list, func(w io.Writer) error {
					return writeExpenses(w, list)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "Only this employee's expenses")
	return cmd
}

func writeExpenses(w io.Writer, list []models.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMPLOYEE\tDATE\tAMOUNT\tDESCRIPTION\tROUTE")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n", e.ID, e.EmployeeID, e.Date, formatAmount(e.Amount), e.Description, e.Route)
	}
	return tw.Flush()
}

func newExpenseUpdateCommand(g *globals) *cobra.Command {
	var in models.ExpenseInput
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Overwrite an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "expense id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				ok, err := a.handlers.UpdateExpense(ctx, id, in.Amount, in.Description, in.Date, in.Route)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeNotFound, "expense %d not found", id)
				}
				return g.emit(map[string]any{"updated": true, "id": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Expense %d updated\n", id)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.Float64Var(&in.Amount, "amount", 0, "Amount")
	f.StringVar(&in.Description, "description", "", "What the expense was for")
	f.StringVar(&in.Date, "date", "", "Date as YYYY-MM-DD")
	f.StringVar(&in.Route, "route", "", "Route or trip the expense belongs to")
	// Update overwrites every column, so nothing may silently default.
	for _, name := range []string{"amount", "description", "date"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newExpenseDeleteCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "expense id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				ok, err := a.handlers.DeleteExpense(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeNotFound, "expense %d not found", id)
				}
				return g.emit(map[string]any{"deleted": true, "id": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Expense %d deleted\n", id)
					return err
				})
			})
		},
	}
}

func newExpenseTotalCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "total <employee-id>",
		Short: "Sum every expense of an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "employee id")
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				total, err := a.handlers.TotalExpenses(ctx, id)
				if err != nil {
					return err
				}
				return g.emit(map[string]float64{"total": total}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, formatAmount(total))
					return err
				})
			})
		},
	}
}

func newSummaryCommand(g *globals) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per-employee expense totals over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				sums, err := a.handlers.Summaries(ctx, from, to)
				if err != nil {
					return err
				}
				return g.emit(sums, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tEXPENSES\tTOTAL")
					var grand float64
					for _, s := range sums {
						grand += s.Total
						fmt.Fprintf(tw, "%d\t%s %s\t%d\t%s\n", s.Employee.ID, s.Employee.GivenName, s.Employee.FamilyName, s.Count, formatAmount(s.Total))
					}
					fmt.Fprintf(tw, "\tTOTAL\t\t%s\n", formatAmount(grand))
					return tw.Flush()
				})
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date included, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last date included, YYYY-MM-DD")
	return cmd
}
