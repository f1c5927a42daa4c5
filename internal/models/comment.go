package models

import "time"

type Comment struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	TaskID      uint64    `gorm:"not null;index" json:"task_id"`
	VolunteerID uint64    `gorm:"not null;index" json:"volunteer_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Photo       string    `gorm:"type:varchar(255)" json:"photo"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Task      Task      `gorm:"foreignKey:TaskID" json:"-"`
	Volunteer Volunteer `gorm:"foreignKey:VolunteerID" json:"-"`
}
