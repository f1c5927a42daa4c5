package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/volunteer-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerRepository is a GORM implementation of LedgerRepository
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &GormLedgerRepository{db: db}
}

// CreateRating inserts a rating
func (r *GormLedgerRepository) CreateRating(ctx context.Context, rating *models.Rating) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(rating).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRating
		}
		return err
	}
	return nil
}

// DeleteRating deletes the rating of a (task, volunteer) pair
func (r *GormLedgerRepository) DeleteRating(ctx context.Context, taskID, volunteerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("task_id = ? AND volunteer_id = ?", taskID, volunteerID).
		Delete(&models.Rating{})
	return res.RowsAffected, res.Error
}

// CreateComment inserts a comment, optionally attaching media in the same transaction
func (r *GormLedgerRepository) CreateComment(ctx context.Context, comment *models.Comment, attach func(*models.Comment) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		if attach == nil {
			return nil
		}

		if err := attach(comment); err != nil {
			return err
		}
		if comment.Photo == "" {
			return nil
		}

		return tx.Model(&models.Comment{}).
			Where("id = ?", comment.ID).
			Update("photo", comment.Photo).Error
	})
}

// ListComments lists the comments of a task, oldest first
func (r *GormLedgerRepository) ListComments(ctx context.Context, taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Volunteer.User").
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// FirstPhotos returns, per task, the photo of its earliest comment carrying one
func (r *GormLedgerRepository) FirstPhotos(ctx context.Context, taskIDs []uint64) (map[uint64]string, error) {
	photos := make(map[uint64]string, len(taskIDs))
	if len(taskIDs) == 0 {
		return photos, nil
	}

	firstIDs := r.db.Model(&models.Comment{}).
		Select("MIN(id)").
		Where("task_id IN ? AND photo <> ''", taskIDs).
		Group("task_id")

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Select("id", "task_id", "photo").
		Where("id IN (?)", firstIDs).
		Find(&comments).Error; err != nil {
		return nil, err
	}

	for _, c := range comments {
		photos[c.TaskID] = c.Photo
	}
	return photos, nil
}
