package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/storage"
)

var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Manage units",
}

var unitDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a unit with its links, their volunteers and everything they posted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unit id %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, closeDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		store, err := storage.NewLocalStorage(cfg.MediaDir, cfg.MediaURL)
		if err != nil {
			return err
		}

		unitService := services.NewUnitService(repository.NewUnitRepository(db), store)
		if err := unitService.DeleteUnit(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted unit %d\n", id)
		return nil
	},
}

func init() {
	unitCmd.AddCommand(unitDeleteCmd)
	rootCmd.AddCommand(unitCmd)
}
