package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/volunteer-api/internal/models"
	"gorm.io/gorm"
)

// GormTokenRepository is a GORM implementation of TokenRepository
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &GormTokenRepository{db: db}
}

// Revoke records the token id. The primary key makes a second call fail.
func (r *GormTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	record := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt.UTC()}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTokenAlreadyRevoked
		}
		return err
	}
	return nil
}

// PurgeExpired removes records whose tokens have expired anyway
func (r *GormTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
