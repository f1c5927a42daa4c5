package models

import "time"

// Volunteer binds an identity to exactly one consumed invite link, and through it to a unit.
type Volunteer struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex" json:"user_id"`
	LinkID    uint64    `gorm:"not null;uniqueIndex" json:"link_id"`
	Avatar    string    `gorm:"type:varchar(255)" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User     User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Link     InviteLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	Ratings  []Rating   `gorm:"foreignKey:VolunteerID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment  `gorm:"foreignKey:VolunteerID;constraint:OnDelete:CASCADE" json:"-"`
}

// VolunteerScore is a volunteer with its score computed from the rating ledger.
type VolunteerScore struct {
	Volunteer Volunteer
	Score     int64
}
