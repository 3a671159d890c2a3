package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/keeper/internal/directory"
	"github.com/roach88/keeper/internal/model"
)

// NewGroupCommand creates the group command group.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			g, err := a.directory.CreateGroup(ctx, directory.NewGroup{Name: args[0], Description: description})
			if err != nil {
				return err
			}
			return f.Success(newGroupView(g))
		}),
	}
	add.Flags().StringVar(&description, "description", "", "free-form description")

	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, _ []string) error {
			groups, err := a.directory.ListGroups(ctx)
			if err != nil {
				return err
			}
			return f.Success(newGroupList(groups))
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <group-id>",
		Short: "Delete a group with its permits and memberships",
		Args:  cobra.ExactArgs(1),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			if err := a.directory.DeleteGroup(ctx, args[0]); err != nil {
				return err
			}
			return f.Success(MessageView{Message: fmt.Sprintf("deleted group %s", args[0])})
		}),
	})
	return cmd
}

// NewMemberCommand creates the member command group.
func NewMemberCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage group memberships",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <group-id> <user-id>",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			m, err := a.grants.CreateMembership(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return f.Success(MembershipView{GroupID: m.GroupID, UserID: m.UserID})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <group-id> <user-id>",
		Short: "Remove a user from a group",
		Args:  cobra.ExactArgs(2),
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, args []string) error {
			if err := a.grants.DeleteMembership(ctx, args[0], args[1]); err != nil {
				return err
			}
			return f.Success(MessageView{Message: fmt.Sprintf("removed %s from %s", args[1], args[0])})
		}),
	})

	var group, user string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the members of a group or the groups of a user",
		Args:  cobra.NoArgs,
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, _ []string) error {
			if (group == "") == (user == "") {
				return NewExitError(ExitCommandError, "exactly one of --group or --user is required")
			}
			var (
				found []model.Membership
				err   error
			)
			if group != "" {
				found, err = a.grants.ListMembershipsByGroup(ctx, group)
			} else {
				found, err = a.grants.ListMembershipsByUser(ctx, user)
			}
			if err != nil {
				return err
			}
			return f.Success(newMembershipList(found))
		}),
	}
	list.Flags().StringVar(&group, "group", "", "list members of this group")
	list.Flags().StringVar(&user, "user", "", "list groups of this user")
	cmd.AddCommand(list)

	return cmd
}
