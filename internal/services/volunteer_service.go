package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/security"
	"github.com/yukikurage/volunteer-api/internal/storage"
	"github.com/yukikurage/volunteer-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrVolunteerNotFound       = errors.New("volunteer not found")
	ErrFailedToCreateVolunteer = errors.New("failed to create volunteer")
)

// VolunteerService manages the volunteer directory and scores
type VolunteerService struct {
	volunteerRepo repository.VolunteerRepository
	storage       storage.Storage
}

// NewVolunteerService creates a new VolunteerService
func NewVolunteerService(volunteerRepo repository.VolunteerRepository, store storage.Storage) *VolunteerService {
	return &VolunteerService{
		volunteerRepo: volunteerRepo,
		storage:       store,
	}
}

// RedeemInput is the identity a new volunteer registers with
type RedeemInput struct {
	Code      string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// Redeem consumes an invite code, creating the identity and its volunteer
// record as one unit of work. Nothing is left behind when it fails.
func (s *VolunteerService) Redeem(ctx context.Context, input RedeemInput) (*models.VolunteerScore, error) {
	username, err := validateCredentials(input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Tariff:       models.TariffFree,
	}

	volunteer, err := s.volunteerRepo.CreateFromLink(ctx, input.Code, user)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLinkNotFound):
			return nil, ErrLinkNotFound
		case errors.Is(err, repository.ErrLinkConsumed):
			return nil, ErrLinkConsumed
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateVolunteer):
			return nil, ErrFailedToCreateVolunteer
		default:
			return nil, fmt.Errorf("failed to redeem invite: %w", err)
		}
	}

	return &models.VolunteerScore{Volunteer: *volunteer, Score: 0}, nil
}

// GetVolunteer returns the volunteer bound to an identity
func (s *VolunteerService) GetVolunteer(ctx context.Context, userID uint64) (*models.Volunteer, error) {
	volunteer, err := s.volunteerRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVolunteerNotFound
		}
		return nil, fmt.Errorf("failed to find volunteer: %w", err)
	}
	return volunteer, nil
}

// GetProfile returns the caller's volunteer record with its unit and current score
func (s *VolunteerService) GetProfile(ctx context.Context, userID uint64) (*models.VolunteerScore, error) {
	volunteer, err := s.GetVolunteer(ctx, userID)
	if err != nil {
		return nil, err
	}

	score, err := s.volunteerRepo.Score(ctx, volunteer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute score: %w", err)
	}

	return &models.VolunteerScore{Volunteer: *volunteer, Score: score}, nil
}

// Rank lists all volunteers ordered by ascending score
func (s *VolunteerService) Rank(ctx context.Context, params utils.PaginationParams) ([]models.VolunteerScore, int64, error) {
	ranked, total, err := s.volunteerRepo.ListRanked(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to rank volunteers: %w", err)
	}
	return ranked, total, nil
}

// UpdateAvatar stores a new avatar as volunteer/<volunteer id>.<ext> and removes the old file
func (s *VolunteerService) UpdateAvatar(ctx context.Context, userID uint64, upload Upload) (*models.Volunteer, error) {
	volunteer, err := s.GetVolunteer(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := storage.Key(constants.MediaKindVolunteer, volunteer.ID, upload.Filename)
	if err != nil {
		return nil, ErrUnsupportedMedia
	}

	if err := s.storage.Save(ctx, key, upload.Content); err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	previous := volunteer.Avatar
	if err := s.volunteerRepo.UpdateAvatar(ctx, volunteer.ID, key); err != nil {
		if key != previous {
			s.removeMedia(ctx, key)
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	if previous != "" && previous != key {
		s.removeMedia(ctx, previous)
	}

	volunteer.Avatar = key
	return volunteer, nil
}

func (s *VolunteerService) removeMedia(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to remove media file", slog.String("key", key), slog.Any("error", err))
	}
}
