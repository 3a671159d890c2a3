package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/keeper/internal/directory"
	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/outcome"
)

// NewUserCommand creates the user command group.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, _ []string) error {
			users, err := a.directory.ListUsers(ctx)
			if err != nil {
				return err
			}
			return f.Success(newUserList(users))
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			u, err := a.directory.GetUser(ctx, args[0])
			if err != nil {
				return err
			}
			return f.Success(newUserView(u))
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate <user-id>",
		Short: "Mark a user as activated",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			u, err := a.directory.ActivateUser(ctx, args[0])
			if err != nil {
				return err
			}
			return f.Success(newUserView(u))
		}),
	})
	cmd.AddCommand(newUserLoginCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <user-id>",
		Short: "Delete a user with its permits and memberships",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			if err := a.directory.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			return f.Success(MessageView{Message: fmt.Sprintf("deleted user %s", args[0])})
		}),
	})
	return cmd
}

func newUserAddCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user",
		Long: `Create a user. The password is stored as a bcrypt hash.

Example:
  keeper user add alice --email alice@example.com --password s3cret --role admin`,
		Args: cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return outcome.Invalid("%v", err)
			}
			if password == "" {
				return outcome.Invalid("password is required")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return outcome.Invalid("unusable password: %v", err)
			}

			u, err := a.directory.CreateUser(ctx, directory.NewUser{
				Name:     args[0],
				Email:    email,
				Password: string(hash),
				Role:     r,
			})
			if err != nil {
				return err
			}
			return f.Success(newUserView(u))
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.Flags().StringVar(&role, "role", "basic", "role (basic|manager|admin)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Check a user's password and record the login",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			u, err := a.directory.GetUser(ctx, args[0])
			if err != nil {
				return err
			}
			err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return outcome.Forbidden("wrong password for user %s", u.ID)
			}
			if err != nil {
				return err
			}
			if u, err = a.directory.RecordLogin(ctx, u.ID); err != nil {
				return err
			}
			return f.Success(newUserView(u))
		}),
	}

	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
