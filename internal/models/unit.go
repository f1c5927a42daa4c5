package models

import (
	"time"
)

type Unit struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	CreatorID   uint64    `gorm:"not null;index" json:"creator_id"`
	Title       string    `gorm:"type:varchar(100);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Creator User         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Links   []InviteLink `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"links,omitempty"`
}
