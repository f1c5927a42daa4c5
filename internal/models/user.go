package models

import (
	"time"
)

type Tariff string

const (
	TariffFree     Tariff = "free"
	TariffAdvanced Tariff = "advanced"
	TariffSpecial  Tariff = "special"
)

// Valid reports whether t is one of the known tariffs.
func (t Tariff) Valid() bool {
	switch t {
	case TariffFree, TariffAdvanced, TariffSpecial:
		return true
	}
	return false
}

type User struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	FirstName    string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(150)" json:"last_name"`
	Email        string     `gorm:"type:varchar(254)" json:"email"`
	Tariff       Tariff     `gorm:"type:varchar(100);not null;default:'free'" json:"tariff"`
	IsStaff      bool       `gorm:"not null" json:"is_staff"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Units     []Unit     `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks     []Task     `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Volunteer *Volunteer `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
