package models

import "time"

// RevokedToken records a refresh token id that has already been exchanged.
type RevokedToken struct {
	JTI       string    `gorm:"type:varchar(64);primarykey"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
