package cli

import (
	"github.com/spf13/cobra"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change checkout threshold and re-tag limit",
	}
	cmd.AddCommand(newSettingsGetCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

func newSettingsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print current settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				cur, err := a.settings.Get(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cur)
			})
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var threshold, maxReTags int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings; unset flags keep their current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				cur, err := a.settings.Get(cmd.Context())
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("checkout-threshold") {
					cur.CheckoutThreshold = threshold
				}
				if cmd.Flags().Changed("max-re-tags") {
					cur.MaxReTags = maxReTags
				}
				saved, err := a.settings.Update(cmd.Context(), cur)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), saved)
			})
		},
	}

	cmd.Flags().IntVar(&threshold, "checkout-threshold", 0, "minutes (1-60)")
	cmd.Flags().IntVar(&maxReTags, "max-re-tags", 0, "taps per window (1-10)")
	return cmd
}

// withApp builds the dependency graph for a one-shot command.
func withApp(cmd *cobra.Command, rootOpts *RootOptions, fn func(a *app) error) error {
	cfg := rootOpts.config()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := newApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
