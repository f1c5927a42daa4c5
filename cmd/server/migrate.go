package main

import (
	"github.com/spf13/cobra"
	"github.com/yukikurage/volunteer-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, closeDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		return database.Migrate(db)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
