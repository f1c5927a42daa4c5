package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/security"
	"github.com/yukikurage/volunteer-api/internal/services"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage identities",
}

var userCreateFlags struct {
	username  string
	password  string
	firstName string
	lastName  string
	email     string
	tariff    string
	staff     bool
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an identity outside of invite redemption",
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

		tokens := security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		authService := services.NewAuthService(
			repository.NewUserRepository(db),
			repository.NewUnitRepository(db),
			tokens,
			security.NewDBRevocationStore(repository.NewTokenRepository(db)),
		)

		user, err := authService.CreateUser(cmd.Context(), services.CreateUserInput{
			Username:  userCreateFlags.username,
			Password:  userCreateFlags.password,
			FirstName: userCreateFlags.firstName,
			LastName:  userCreateFlags.lastName,
			Email:     userCreateFlags.email,
			Tariff:    models.Tariff(userCreateFlags.tariff),
			IsStaff:   userCreateFlags.staff,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, staff=%t)\n", user.Username, user.ID, user.IsStaff)
		return nil
	},
}

func init() {
	flags := userCreateCmd.Flags()
	flags.StringVar(&userCreateFlags.username, "username", "", "login handle")
	flags.StringVar(&userCreateFlags.password, "password", "", "password")
	flags.StringVar(&userCreateFlags.firstName, "first-name", "", "first name")
	flags.StringVar(&userCreateFlags.lastName, "last-name", "", "last name")
	flags.StringVar(&userCreateFlags.email, "email", "", "email address")
	flags.StringVar(&userCreateFlags.tariff, "tariff", string(models.TariffFree), "tariff: free, advanced or special")
	flags.BoolVar(&userCreateFlags.staff, "staff", false, "allow creating units and tasks")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
