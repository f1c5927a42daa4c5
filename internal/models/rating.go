package models

import (
	"time"
)

// Rating marks that a volunteer completed a task. One per (task, volunteer).
type Rating struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	TaskID      uint64    `gorm:"not null;uniqueIndex:idx_ratings_task_volunteer" json:"task_id"`
	VolunteerID uint64    `gorm:"not null;uniqueIndex:idx_ratings_task_volunteer;index" json:"volunteer_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Task      Task      `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Volunteer Volunteer `gorm:"foreignKey:VolunteerID" json:"-"`
}
