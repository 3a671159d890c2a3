package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/keeper/internal/access"
	"github.com/roach88/keeper/internal/directory"
	"github.com/roach88/keeper/internal/documents"
	"github.com/roach88/keeper/internal/grants"
	"github.com/roach88/keeper/internal/model"
	"github.com/roach88/keeper/internal/store"
	"github.com/roach88/keeper/internal/uow"
)

// app holds the services one command invocation works with.
type app struct {
	store     *store.Store
	directory *directory.Service
	grants    *grants.Service
	documents *documents.Service
	access    *access.Service
}

func (o *RootOptions) openApp() (*app, error) {
	st, err := store.Open(o.Config.StoreOptions())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	ids := o.IDs
	if ids == nil {
		ids = model.UUIDv7Generator{}
	}
	clock := o.Clock
	if clock == nil {
		clock = model.SystemClock{}
	}

	uows := uow.NewFactory(st.DB(), o.Config.UnitOfWorkConfig())
	return &app{
		store:     st,
		directory: directory.NewService(uows, ids, clock),
		grants:    grants.NewService(uows, ids),
		documents: documents.NewService(uows, ids, clock),
		access:    access.NewService(uows),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// action is the body of a command that needs the services.
type action func(ctx context.Context, a *app, f *OutputFormatter, args []string) error

// withApp adapts fn into a cobra RunE: it opens the database, runs fn and
// reports request failures and faults through the formatter.
func (o *RootOptions) withApp(fn action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		f := o.formatter(cmd)
		a, err := o.openApp()
		if err != nil {
			_ = f.Error(ErrCodeInternal, "failed to open database", nil)
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := fn(ctx, a, f, args); err != nil {
			return f.Fail(err)
		}
		return nil
	}
}
