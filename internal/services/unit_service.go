package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/storage"
	"github.com/yukikurage/volunteer-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrUnitNotFound         = errors.New("unit not found")
	ErrNotUnitCreator       = errors.New("only the unit creator can perform this action")
	ErrStaffOnly            = errors.New("only staff accounts can perform this action")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title too long")
	ErrLinkNotFound         = errors.New("invite link not found")
	ErrLinkConsumed         = errors.New("invite link already used")
	ErrFailedToCreateLink   = errors.New("failed to create invite link")
	ErrFailedToGenerateCode = errors.New("failed to generate invite code")
)

// inviteCodeAttempts bounds retries when a generated code collides.
const inviteCodeAttempts = 3

// UnitService handles units and their invite links
type UnitService struct {
	unitRepo     repository.UnitRepository
	storage      storage.Storage
	generateCode func() (string, error)
}

// NewUnitService creates a new UnitService
func NewUnitService(unitRepo repository.UnitRepository, store storage.Storage) *UnitService {
	return &UnitService{
		unitRepo:     unitRepo,
		storage:      store,
		generateCode: utils.GenerateInviteCode,
	}
}

// CreateUnitInput represents input for creating a unit
type CreateUnitInput struct {
	Title       string
	Description string
	Creator     *models.User
}

// CreateUnit creates a unit owned by a staff identity
func (s *UnitService) CreateUnit(ctx context.Context, input CreateUnitInput) (*models.Unit, error) {
	if input.Creator == nil || !input.Creator.IsStaff {
		return nil, ErrStaffOnly
	}

	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	unit := &models.Unit{
		CreatorID:   input.Creator.ID,
		Title:       title,
		Description: input.Description,
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	return s.unitRepo.FindByID(ctx, unit.ID)
}

// GetUnit returns a unit by ID
func (s *UnitService) GetUnit(ctx context.Context, id uint64) (*models.Unit, error) {
	unit, err := s.unitRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("failed to find unit: %w", err)
	}
	return unit, nil
}

// ListMyUnits lists the units the user created
func (s *UnitService) ListMyUnits(ctx context.Context, creatorID uint64) ([]models.Unit, error) {
	units, err := s.unitRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// CreateLink issues a fresh invite code for a unit. Only the unit's creator may do so.
func (s *UnitService) CreateLink(ctx context.Context, unitID, requesterID uint64) (*models.InviteLink, error) {
	if _, err := s.ownedUnit(ctx, unitID, requesterID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, ErrFailedToGenerateCode
		}

		link := &models.InviteLink{Code: code, UnitID: unitID}
		err = s.unitRepo.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrFailedToCreateLink, err)
		}
	}

	return nil, ErrFailedToCreateLink
}

// ListLinks lists the invite links of a unit for its creator
func (s *UnitService) ListLinks(ctx context.Context, unitID, requesterID uint64) ([]models.InviteLink, error) {
	if _, err := s.ownedUnit(ctx, unitID, requesterID); err != nil {
		return nil, err
	}

	links, err := s.unitRepo.ListLinks(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// ResolveLink looks a code up without consuming it
func (s *UnitService) ResolveLink(ctx context.Context, code string) (*models.InviteLink, error) {
	link, err := s.unitRepo.FindLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return link, nil
}

// DeleteUnit removes a unit with everything bound to its links, then their media files.
func (s *UnitService) DeleteUnit(ctx context.Context, id uint64) error {
	media, err := s.unitRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		return fmt.Errorf("failed to delete unit: %w", err)
	}

	for _, key := range media {
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "failed to remove media file", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

// ownedUnit loads a unit and verifies requesterID created it
func (s *UnitService) ownedUnit(ctx context.Context, unitID, requesterID uint64) (*models.Unit, error) {
	unit, err := s.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.CreatorID != requesterID {
		return nil, ErrNotUnitCreator
	}
	return unit, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len([]rune(title)) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
