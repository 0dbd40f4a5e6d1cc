package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"staff-ledger/internal/handlers"

	"github.com/spf13/cobra"
)

func newMaintenanceCommand(g *globals) *cobra.Command {
	var nickname, password string
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Back up, prune old records and compact the database",
		Long: `Requires the administrator login. Takes a backup into <data-dir>/backups,
removes expenses older than the retention period and employees deactivated
before it, then compacts the database file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				var err error
				if nickname, err = g.prompt.valueOrPrompt(nickname, "Nickname: ", false); err != nil {
					return err
				}
				if password, err = g.prompt.valueOrPrompt(password, "Password: ", true); err != nil {
					return err
				}

				res := a.handlers.RunMaintenance(ctx, nickname, password)
				if err := g.emit(res, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, res.Message)
					return err
				}); err != nil {
					return err
				}
				switch {
				case res.Success:
					return nil
				case res.Message == handlers.InvalidCredentialsMessage:
					return &ExitError{Code: ExitCodeAuthFailed, Err: errors.New(res.Message)}
				default:
					return &ExitError{Code: ExitCodeGeneric, Err: errors.New(res.Message)}
				}
			})
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "Administrator nickname")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password (prompted when omitted)")
	return cmd
}
