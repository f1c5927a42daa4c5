package constants

import "time"

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyVolunteer = "volunteer"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxTitleLength    = 100
	MaxUsernameLength = 150
)

// ArchiveGracePeriod is how long after date_end a task stays out of the archive.
const ArchiveGracePeriod = 48 * time.Hour

const MaxAIGeneratedTasks = 20

// Media folders
const (
	MediaKindVolunteer = "volunteer"
	MediaKindComment   = "comment"
)
