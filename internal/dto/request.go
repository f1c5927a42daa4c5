package dto

import "time"

// Write shapes. Each endpoint binds one of these; responses use the types in response.go.

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type RedeemRequest struct {
	Code      string `json:"code" binding:"required"`
	Username  string `json:"username" binding:"required,max=150"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Email     string `json:"email" binding:"omitempty,email,max=254"`
}

type CreateUnitRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description"`
}

type CreateTaskRequest struct {
	Title       string    `json:"title" binding:"required,max=100"`
	Description string    `json:"description"`
	Score       uint      `json:"score" binding:"required,min=1"`
	DateStart   time.Time `json:"date_start" binding:"required"`
	DateEnd     time.Time `json:"date_end" binding:"required"`
}

// UpdateTaskRequest is a partial update; absent fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Score       *uint      `json:"score"`
	DateStart   *time.Time `json:"date_start"`
	DateEnd     *time.Time `json:"date_end"`
	IsOpen      *bool      `json:"is_open"`
}

type CreateCommentRequest struct {
	Text string `json:"text" form:"text"`
}

type GenerateTasksRequest struct {
	Text string `json:"text" binding:"required"`
}
