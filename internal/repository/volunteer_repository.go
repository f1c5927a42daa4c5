package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/volunteer-api/internal/database"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVolunteerRepository is a GORM implementation of VolunteerRepository
type GormVolunteerRepository struct {
	db *gorm.DB
}

// NewVolunteerRepository creates a new VolunteerRepository
func NewVolunteerRepository(db *gorm.DB) VolunteerRepository {
	return &GormVolunteerRepository{db: db}
}

// CreateFromLink redeems an invite link. The conditional update on
// consumed_at makes concurrent redemptions of one code race on a single row:
// exactly one transaction sees RowsAffected == 1. The unique index on
// volunteers.link_id backs this up.
func (r *GormVolunteerRepository) CreateFromLink(ctx context.Context, code string, user *models.User) (*models.Volunteer, error) {
	var volunteer models.Volunteer

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link models.InviteLink
		if err := tx.Where("code = ?", code).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}

		res := tx.Model(&models.InviteLink{}).
			Where("id = ? AND consumed_at IS NULL", link.ID).
			Update("consumed_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrLinkConsumed
		}

		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateUsername
			}
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		volunteer = models.Volunteer{UserID: user.ID, LinkID: link.ID}
		if err := tx.Omit(clause.Associations).Create(&volunteer).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLinkConsumed
			}
			return fmt.Errorf("%w: %v", ErrCreateVolunteer, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, volunteer.ID)
}

// FindByID finds a volunteer with its user and unit
func (r *GormVolunteerRepository) FindByID(ctx context.Context, id uint64) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Link.Unit").
		First(&volunteer, id).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// FindByUserID finds the volunteer bound to an identity
func (r *GormVolunteerRepository) FindByUserID(ctx context.Context, userID uint64) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Link.Unit").
		Where("user_id = ?", userID).
		First(&volunteer).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

// Score sums the score of closed tasks the volunteer has rated
func (r *GormVolunteerRepository) Score(ctx context.Context, volunteerID uint64) (int64, error) {
	var score int64
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(SUM(tasks.score), 0)").
		Joins("JOIN tasks ON tasks.id = ratings.task_id").
		Where("ratings.volunteer_id = ? AND tasks.is_open = ?", volunteerID, false).
		Scan(&score).Error
	if err != nil {
		return 0, err
	}
	return score, nil
}

type rankedRow struct {
	VolunteerID uint64
	Score       int64
}

// ListRanked lists volunteers ordered by ascending score, ties by id
func (r *GormVolunteerRepository) ListRanked(ctx context.Context, params utils.PaginationParams) ([]models.VolunteerScore, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Volunteer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []rankedRow
	err := r.db.WithContext(ctx).Table("volunteers").
		Select("volunteers.id AS volunteer_id, COALESCE(SUM(CASE WHEN tasks.is_open = ? THEN tasks.score ELSE 0 END), 0) AS score", false).
		Joins("LEFT JOIN ratings ON ratings.volunteer_id = volunteers.id").
		Joins("LEFT JOIN tasks ON tasks.id = ratings.task_id").
		Group("volunteers.id").
		Order("score ASC, volunteers.id ASC").
		Scopes(database.Paginate(params)).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []models.VolunteerScore{}, total, nil
	}

	ids := make([]uint64, len(rows))
	for i, row := range rows {
		ids[i] = row.VolunteerID
	}

	var volunteers []models.Volunteer
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Link.Unit").
		Where("id IN ?", ids).
		Find(&volunteers).Error; err != nil {
		return nil, 0, err
	}

	byID := make(map[uint64]models.Volunteer, len(volunteers))
	for _, v := range volunteers {
		byID[v.ID] = v
	}

	ranked := make([]models.VolunteerScore, 0, len(rows))
	for _, row := range rows {
		v, ok := byID[row.VolunteerID]
		if !ok {
			continue
		}
		ranked = append(ranked, models.VolunteerScore{Volunteer: v, Score: row.Score})
	}

	return ranked, total, nil
}

// UpdateAvatar sets the avatar path
func (r *GormVolunteerRepository) UpdateAvatar(ctx context.Context, volunteerID uint64, avatar string) error {
	return r.db.WithContext(ctx).Model(&models.Volunteer{}).
		Where("id = ?", volunteerID).
		Update("avatar", avatar).Error
}
