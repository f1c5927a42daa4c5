package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yukikurage/volunteer-api/internal/repository"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Maintain refresh token records",
}

var tokensPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove revocation records of refresh tokens that have expired",
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

		purged, err := repository.NewTokenRepository(db).PurgeExpired(cmd.Context(), time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "purged %d revoked tokens\n", purged)
		return nil
	},
}

func init() {
	tokensCmd.AddCommand(tokensPurgeCmd)
	rootCmd.AddCommand(tokensCmd)
}
