package cli

import (
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// NewIdentityCommand creates the identity command group.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage UID to person bindings",
	}
	cmd.AddCommand(newIdentityRegisterCommand(rootOpts))
	cmd.AddCommand(newIdentityShowCommand(rootOpts))
	return cmd
}

func newIdentityRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var req types.RegisterIdentityRequest
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Bind a card UID to a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = types.Role(role)
			return withApp(cmd, rootOpts, func(a *app) error {
				id, err := a.identities.Register(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), id)
			})
		},
	}

	cmd.Flags().StringVar(&req.UID, "uid", "", "card/QR/mobile UID")
	cmd.Flags().StringVar(&req.PersonID, "person", "", "person id")
	cmd.Flags().StringVar(&role, "role", "", "student|teacher|staff|admin")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name shown at the reader")
	cmd.Flags().BoolVar(&req.Force, "force", false, "move a UID that already has tag logs")
	return cmd
}

func newIdentityShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <uid>",
		Short: "Print the identity bound to a UID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				id, err := a.identities.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), id)
			})
		},
	}
}
