package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

var (
	// ErrLinkNotFound is returned when no invite link has the given code.
	ErrLinkNotFound = errors.New("repository: invite link not found")
	// ErrLinkConsumed is returned when the invite link is already bound to a volunteer.
	ErrLinkConsumed = errors.New("repository: invite link already consumed")
	// ErrDuplicateUsername is returned when the username is already registered.
	ErrDuplicateUsername = errors.New("repository: username already exists")
	// ErrDuplicateRating is returned when the (task, volunteer) rating already exists.
	ErrDuplicateRating = errors.New("repository: rating already exists")
	// ErrCreateUser is returned when creating a user fails inside the redemption transaction.
	ErrCreateUser = errors.New("repository: create user failed")
	// ErrCreateVolunteer is returned when creating a volunteer fails inside the redemption transaction.
	ErrCreateVolunteer = errors.New("repository: create volunteer failed")
	// ErrTokenAlreadyRevoked is returned when a token id has been revoked before.
	ErrTokenAlreadyRevoked = errors.New("repository: token already revoked")
)

// UserRepository defines the interface for identity data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// TouchLastLogin records a successful login
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}

// UnitRepository defines the interface for units and their invite links
type UnitRepository interface {
	// Create creates a new unit
	Create(ctx context.Context, unit *models.Unit) error

	// FindByID finds a unit by ID
	FindByID(ctx context.Context, id uint64) (*models.Unit, error)

	// ListByCreator lists the units owned by a creator
	ListByCreator(ctx context.Context, creatorID uint64) ([]models.Unit, error)

	// Delete removes a unit with its links, their volunteers and the volunteers'
	// ratings and comments. It returns the media paths that were referenced by
	// the deleted rows.
	Delete(ctx context.Context, id uint64) ([]string, error)

	// CreateLink stores a new unconsumed invite link
	CreateLink(ctx context.Context, link *models.InviteLink) error

	// FindLinkByCode finds an invite link with its unit and bound volunteer
	FindLinkByCode(ctx context.Context, code string) (*models.InviteLink, error)

	// ListLinks lists the invite links of a unit
	ListLinks(ctx context.Context, unitID uint64) ([]models.InviteLink, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// FindOpenByID finds a task by ID only if it is open
	FindOpenByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	IsOpen             *bool
	RatedByVolunteerID *uint64
	Pagination         utils.PaginationParams
}

// VolunteerRepository defines the interface for the volunteer directory
type VolunteerRepository interface {
	// CreateFromLink consumes the invite link, creates the user and binds a
	// volunteer to the link within a single transaction.
	CreateFromLink(ctx context.Context, code string, user *models.User) (*models.Volunteer, error)

	// FindByID finds a volunteer with its user and unit
	FindByID(ctx context.Context, id uint64) (*models.Volunteer, error)

	// FindByUserID finds the volunteer bound to an identity
	FindByUserID(ctx context.Context, userID uint64) (*models.Volunteer, error)

	// Score sums the score of closed tasks the volunteer has rated
	Score(ctx context.Context, volunteerID uint64) (int64, error)

	// ListRanked lists volunteers ordered by ascending score
	ListRanked(ctx context.Context, params utils.PaginationParams) ([]models.VolunteerScore, int64, error)

	// UpdateAvatar sets the avatar path
	UpdateAvatar(ctx context.Context, volunteerID uint64, avatar string) error
}

// LedgerRepository defines the interface for ratings and comments
type LedgerRepository interface {
	// CreateRating inserts a rating; ErrDuplicateRating if the pair exists
	CreateRating(ctx context.Context, rating *models.Rating) error

	// DeleteRating deletes the rating of a (task, volunteer) pair
	DeleteRating(ctx context.Context, taskID, volunteerID uint64) (int64, error)

	// CreateComment inserts a comment. When attach is non-nil it runs inside
	// the same transaction after the insert, and may set comment.Photo.
	CreateComment(ctx context.Context, comment *models.Comment, attach func(*models.Comment) error) error

	// ListComments lists the comments of a task, oldest first
	ListComments(ctx context.Context, taskID uint64) ([]models.Comment, error)

	// FirstPhotos returns, per task, the photo of its first comment carrying one
	FirstPhotos(ctx context.Context, taskIDs []uint64) (map[uint64]string, error)
}

// TokenRepository stores revoked refresh token ids
type TokenRepository interface {
	// Revoke records the token id; ErrTokenAlreadyRevoked if it was recorded before
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	// PurgeExpired removes records whose tokens have expired anyway
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
