// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/volunteer-api/internal/database"
	"github.com/yukikurage/volunteer-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory sqlite database. A single connection keeps
// every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts an identity with the given password.
func CreateUser(t *testing.T, db *gorm.DB, username, password string, staff bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Tariff:       models.TariffFree,
		IsStaff:      staff,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateUnit inserts a unit owned by creator.
func CreateUnit(t *testing.T, db *gorm.DB, creator *models.User, title string) *models.Unit {
	t.Helper()

	unit := &models.Unit{CreatorID: creator.ID, Title: title}
	require.NoError(t, db.Omit("Creator", "Links").Create(unit).Error)
	return unit
}

// CreateLink inserts an open invite link for unit.
func CreateLink(t *testing.T, db *gorm.DB, unit *models.Unit, code string) *models.InviteLink {
	t.Helper()

	link := &models.InviteLink{Code: code, UnitID: unit.ID}
	require.NoError(t, db.Omit("Unit", "Volunteer").Create(link).Error)
	return link
}

// CreateVolunteer binds a fresh identity to a fresh link of unit.
func CreateVolunteer(t *testing.T, db *gorm.DB, unit *models.Unit, username string) *models.Volunteer {
	t.Helper()

	user := CreateUser(t, db, username, "password123", false)
	link := CreateLink(t, db, unit, "code-"+username)
	now := time.Now().UTC()
	require.NoError(t, db.Model(link).Update("consumed_at", now).Error)

	volunteer := &models.Volunteer{UserID: user.ID, LinkID: link.ID}
	require.NoError(t, db.Omit("User", "Link").Create(volunteer).Error)
	return volunteer
}

// CreateTask inserts a task with the given score and open flag.
func CreateTask(t *testing.T, db *gorm.DB, creator *models.User, title string, score uint, open bool) *models.Task {
	t.Helper()

	now := time.Now().UTC()
	task := &models.Task{
		Title:     title,
		CreatorID: creator.ID,
		Score:     score,
		DateStart: now.Add(-time.Hour),
		DateEnd:   now.Add(24 * time.Hour),
		IsOpen:    open,
	}
	require.NoError(t, db.Omit("Creator").Create(task).Error)
	return task
}

// Rate records that volunteer completed task.
func Rate(t *testing.T, db *gorm.DB, task *models.Task, volunteer *models.Volunteer) {
	t.Helper()

	require.NoError(t, db.Omit("Task", "Volunteer").Create(&models.Rating{TaskID: task.ID, VolunteerID: volunteer.ID}).Error)
}
