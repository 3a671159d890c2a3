package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// InitView reports the database a command initialized.
type InitView struct {
	Database      string `json:"database"`
	SchemaVersion string `json:"schema_version"`
}

func (v InitView) Text() string {
	return fmt.Sprintf("Initialized %s (schema %s)\n", v.Database, v.SchemaVersion)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply schema migrations",
		Long: `Create the database if it does not exist and apply any pending schema
migrations. Safe to run repeatedly.

Example:
  keeper init --db ./keeper.db`,
		Args: cobra.NoArgs,
		RunE: rootOpts.withApp(func(ctx context.Context, a *app, f *OutputFormatter, _ []string) error {
			version, err := a.store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			return f.Success(InitView{Database: rootOpts.Config.Database.Path, SchemaVersion: version})
		}),
	}
}
