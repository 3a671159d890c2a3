package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keeper/internal/grants"
)

// NewPermitCommand creates the permit command group.
func NewPermitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permit",
		Short: "Grant and revoke read access to documents",
	}

	var user, group string
	add := &cobra.Command{
		Use:   "add <document-id>",
		Short: "Grant read access to a user, a group, or both",
		Long: `Grant read access on a document.

Example:
  keeper permit add 0192... --group finance-id
  keeper permit add 0192... --user alice-id`,
		Args: cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			p, err := a.grants.CreatePermit(ctx, grants.NewPermit{KeeperID: args[0], UserID: user, GroupID: group})
			if err != nil {
				return err
			}
			return f.Success(newPermitView(p))
		}),
	}
	add.Flags().StringVar(&user, "user", "", "user id to grant")
	add.Flags().StringVar(&group, "group", "", "group id to grant")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <permit-id>",
		Short: "Revoke a permit",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			if err := a.grants.DeletePermit(ctx, args[0]); err != nil {
				return err
			}
			return f.Success(MessageView{Message: fmt.Sprintf("revoked permit %s", args[0])})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list <document-id>",
		Short: "List the permits on a document",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			ps, err := a.grants.ListPermits(ctx, args[0])
			if err != nil {
				return err
			}
			return f.Success(newPermitList(ps))
		}),
	})
	return cmd
}
