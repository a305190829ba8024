package main

import (
	"prompt-manager/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer db.CloseDb(conn)

		return db.Migrate(conn)
	},
}
