package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/volunteer-api/internal/models"
	"gorm.io/gorm"
)

// Models lists every table owned by the application, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Unit{},
		&models.InviteLink{},
		&models.Task{},
		&models.Volunteer{},
		&models.Rating{},
		&models.Comment{},
		&models.RevokedToken{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := EnsureIndexes(db); err != nil {
		return err
	}

	slog.Info("database migrations completed")
	return nil
}

// EnsureIndexes creates the uniqueness and lookup indexes the services rely on
// when a table predates them. The indexes themselves are declared on the models.
func EnsureIndexes(db *gorm.DB) error {
	indexes := []struct {
		model interface{}
		name  string
	}{
		// One volunteer per link and per identity
		{&models.Volunteer{}, "idx_volunteers_link_id"},
		{&models.Volunteer{}, "idx_volunteers_user_id"},

		// One rating per (task, volunteer)
		{&models.Rating{}, "idx_ratings_task_volunteer"},

		{&models.InviteLink{}, "idx_invite_links_code"},
		{&models.Task{}, "idx_tasks_is_open"},
		{&models.Comment{}, "idx_comments_task_id"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		if err := migrator.CreateIndex(idx.model, idx.name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", slog.String("index", idx.name))
	}

	return nil
}
