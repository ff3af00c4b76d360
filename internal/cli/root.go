package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/tagbook/internal/config"
)

// RootOptions holds global flags for all commands.  Empty values fall
// back to the TAGBOOK_ environment.
type RootOptions struct {
	DBPath string
	Store  string
	Env    string
}

func (o *RootOptions) config() config.Config {
	cfg := config.FromEnv()
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.Env != "" {
		cfg.Env = o.Env
	}
	return cfg
}

// NewRootCommand creates the root command for the tagbook binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "tagbook",
		Short:         "tagbook - attendance tagging server",
		Long:          "Turns card, QR and mobile taps into attendance events, points and payroll facts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (default $TAGBOOK_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "storage backend: sqlite|memory (default $TAGBOOK_STORE)")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", "", "dev|prod (default $TAGBOOK_ENV)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewIdentityCommand(opts))

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
