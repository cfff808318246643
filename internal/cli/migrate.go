package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, root.Config.Store, root.Logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "open store", err)
			}
			defer s.Close()

			if err := s.Migrate(ctx); err != nil {
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", root.Config.Store.Driver)
			return nil
		},
	}
}
