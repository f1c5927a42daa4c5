package models

import (
	"time"

	"github.com/yukikurage/volunteer-api/internal/constants"
)

type Task struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"type:varchar(100);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   uint64    `gorm:"not null;index" json:"creator_id"`
	Score       uint      `gorm:"not null;default:0" json:"score"`
	DateStart   time.Time `gorm:"not null" json:"date_start"`
	DateEnd     time.Time `gorm:"not null" json:"date_end"`
	// No gorm default here: a default of true would swallow an explicit false on insert.
	IsOpen    bool      `gorm:"not null;index" json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Creator  User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Ratings  []Rating  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsArchived reports whether more than two days have passed since DateEnd.
// It is independent of IsOpen.
func (t Task) IsArchived(now time.Time) bool {
	return now.After(t.DateEnd.Add(constants.ArchiveGracePeriod))
}
