package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the indexes of the user and role collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := provider.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Indexes are up to date.")
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the connection to MongoDB",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := provider.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pingCmd)
}
