package models

import "time"

// InviteLink is a single-use code binding a future volunteer to a unit.
// ConsumedAt is set exactly once, in the same transaction that creates the Volunteer.
type InviteLink struct {
	ID         uint64     `gorm:"primarykey" json:"id"`
	Code       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	UnitID     uint64     `gorm:"not null;index" json:"unit_id"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`

	// Relations
	Unit      Unit       `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Volunteer *Volunteer `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsOpen reports whether the link can still be redeemed.
func (l InviteLink) IsOpen() bool {
	return l.ConsumedAt == nil
}
