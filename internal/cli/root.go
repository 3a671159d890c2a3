package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/keeper/internal/config"
	"github.com/roach88/keeper/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string

	// Config is resolved before any subcommand runs.
	Config config.Config

	// IDs and Clock override record id generation and timestamps (for
	// testing). If nil, UUIDv7 ids and the system clock are used.
	IDs   model.IDGenerator
	Clock model.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the keeper CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "keeper - shared document store with per-user and per-group grants",
		Long: `keeper stores documents and controls who may read them.

A user may read a document when a permit names the user, when a permit
names a group the user belongs to, or when the user is an admin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "path to a config file (yaml, json or toml)")
	flags.StringVar(&opts.Database, "db", "", "path to the SQLite database (overrides database.path)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewMemberCommand(opts))
	cmd.AddCommand(NewPermitCommand(opts))
	cmd.AddCommand(NewDocCommand(opts))

	return cmd
}

// resolve loads configuration, applying --db and --verbose on top, and
// installs the process logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	v := config.NewViper()
	if err := v.BindPFlag("database.path", cmd.Flags().Lookup("db")); err != nil {
		return WrapExitError(ExitCommandError, "failed to bind --db", err)
	}
	if o.Verbose {
		v.Set("log.level", "debug")
	}

	cfg, err := config.Load(v, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	o.Config = cfg

	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr()))
	slog.Debug("configuration loaded", "db", cfg.Database.Path, "config", o.ConfigFile)
	return nil
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
