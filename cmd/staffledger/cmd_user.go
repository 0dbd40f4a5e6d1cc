package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newUserCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Set up and recover the administrator login",
	}
	cmd.AddCommand(
		newUserSetupCommand(g),
		newUserLoginCommand(g),
		newUserRecoverCommand(g),
		newUserResetAllCommand(g),
	)
	return cmd
}

func newUserSetupCommand(g *globals) *cobra.Command {
	var nickname, password, question, answer string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the administrator (first run only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				exists, err := a.handlers.UserExists(ctx)
				if err != nil {
					return err
				}
				if exists {
					return exitErrorf(ExitCodeConflict, "an administrator is already registered; run 'user reset-all' first")
				}

				p := g.prompt
				if nickname, err = p.valueOrPrompt(nickname, "Nickname: ", false); err != nil {
					return err
				}
				if password, err = p.valueOrPrompt(password, "Password: ", true); err != nil {
					return err
				}
				if question, err = p.valueOrPrompt(question, "Security question: ", false); err != nil {
					return err
				}
				if answer, err = p.valueOrPrompt(answer, "Answer: ", true); err != nil {
					return err
				}

				if _, err := a.handlers.RegisterUser(ctx, nickname, password, question, answer); err != nil {
					return err
				}
				return g.emit(map[string]any{"registered": true, "nickname": nickname}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "User %s registered\n", nickname)
					return err
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&nickname, "nickname", "", "Login name")
	f.StringVar(&password, "password", "", "Password (prompted when omitted)")
	f.StringVar(&question, "question", "", "Security question used for recovery")
	f.StringVar(&answer, "answer", "", "Answer to the security question (prompted when omitted)")
	return cmd
}

func newUserLoginCommand(g *globals) *cobra.Command {
	var nickname, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check a nickname and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				var err error
				if nickname, err = g.prompt.valueOrPrompt(nickname, "Nickname: ", false); err != nil {
					return err
				}
				if password, err = g.prompt.valueOrPrompt(password, "Password: ", true); err != nil {
					return err
				}
				ok, err := a.handlers.Login(ctx, nickname, password)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeAuthFailed, "invalid credentials")
				}
				return g.emit(map[string]bool{"ok": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Login successful")
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "Login name")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func newUserRecoverCommand(g *globals) *cobra.Command {
	var answer, newPassword string
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reset the password by answering the security question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				question, ok, err := a.handlers.SecurityQuestion(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeNotFound, "no administrator is registered; run 'user setup'")
				}

				if answer, err = g.prompt.valueOrPrompt(answer, question+" ", true); err != nil {
					return err
				}
				ok, err = a.handlers.VerifyRecovery(ctx, answer)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeAuthFailed, "incorrect answer")
				}

				if newPassword, err = g.prompt.valueOrPrompt(newPassword, "New password: ", true); err != nil {
					return err
				}
				ok, err = a.handlers.ResetPassword(ctx, newPassword)
				if err != nil {
					return err
				}
				if !ok {
					return exitErrorf(ExitCodeConflict, "password not reset: more than one login is registered")
				}
				return g.emit(map[string]bool{"reset": true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Password updated")
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&answer, "answer", "", "Answer to the security question (prompted when omitted)")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "New password (prompted when omitted)")
	return cmd
}

func newUserResetAllCommand(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-all",
		Short: "Remove every login so setup can run again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return usageErrorf("refusing to remove logins without --yes")
			}
			return withApp(cmd, g, func(ctx context.Context, a *app) error {
				n, err := a.handlers.ResetUsers(ctx)
				if err != nil {
					return err
				}
				return g.emit(map[string]int64{"removed": n}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Removed %d logins\n", n)
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removal")
	return cmd
}
