package repository

import (
	"context"

	"github.com/yukikurage/volunteer-api/internal/models"
	"gorm.io/gorm"
)

// GormUnitRepository is a GORM implementation of UnitRepository
type GormUnitRepository struct {
	db *gorm.DB
}

// NewUnitRepository creates a new UnitRepository
func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &GormUnitRepository{db: db}
}

// Create creates a new unit
func (r *GormUnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

// FindByID finds a unit by ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uint64) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).Preload("Creator").First(&unit, id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListByCreator lists the units owned by a creator
func (r *GormUnitRepository) ListByCreator(ctx context.Context, creatorID uint64) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Delete deletes a unit and everything hanging off its links in a transaction
func (r *GormUnitRepository) Delete(ctx context.Context, id uint64) ([]string, error) {
	var media []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var linkIDs []uint64
		if err := tx.Model(&models.InviteLink{}).Where("unit_id = ?", id).Pluck("id", &linkIDs).Error; err != nil {
			return err
		}

		var volunteers []models.Volunteer
		if len(linkIDs) > 0 {
			if err := tx.Where("link_id IN ?", linkIDs).Find(&volunteers).Error; err != nil {
				return err
			}
		}

		volunteerIDs := make([]uint64, 0, len(volunteers))
		for _, v := range volunteers {
			volunteerIDs = append(volunteerIDs, v.ID)
			if v.Avatar != "" {
				media = append(media, v.Avatar)
			}
		}

		if len(volunteerIDs) > 0 {
			var photos []string
			if err := tx.Model(&models.Comment{}).
				Where("volunteer_id IN ? AND photo <> ''", volunteerIDs).
				Pluck("photo", &photos).Error; err != nil {
				return err
			}
			media = append(media, photos...)

			if err := tx.Where("volunteer_id IN ?", volunteerIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("volunteer_id IN ?", volunteerIDs).Delete(&models.Rating{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", volunteerIDs).Delete(&models.Volunteer{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("unit_id = ?", id).Delete(&models.InviteLink{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Unit{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

// CreateLink stores a new unconsumed invite link
func (r *GormUnitRepository) CreateLink(ctx context.Context, link *models.InviteLink) error {
	return r.db.WithContext(ctx).Omit("Unit", "Volunteer").Create(link).Error
}

// FindLinkByCode finds an invite link with its unit and, once consumed, its volunteer
func (r *GormUnitRepository) FindLinkByCode(ctx context.Context, code string) (*models.InviteLink, error) {
	var link models.InviteLink
	if err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("Volunteer").
		Where("code = ?", code).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks lists the invite links of a unit
func (r *GormUnitRepository) ListLinks(ctx context.Context, unitID uint64) ([]models.InviteLink, error) {
	var links []models.InviteLink
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("id ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}
