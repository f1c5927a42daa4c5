package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrNotTaskCreator         = errors.New("only the task creator can perform this action")
	ErrInvalidScore           = errors.New("score must be a positive integer")
	ErrInvalidDateRange       = errors.New("date_start must not be after date_end")
	ErrTaskReopen             = errors.New("a closed task cannot be reopened")
	ErrTextRequired           = errors.New("text is required")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	aiService *AIService
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, aiService *AIService) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		aiService: aiService,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Authenticated bool
	IsOpen        *bool
	Pagination    utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Score       uint
	DateStart   time.Time
	DateEnd     time.Time
	Creator     *models.User
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Score       *uint
	DateStart   *time.Time
	DateEnd     *time.Time
	IsOpen      *bool
}

// ListTasks lists tasks visible to the caller. Anonymous callers only ever see
// closed tasks; authenticated callers filter on is_open, open by default.
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	isOpen := false
	if input.Authenticated {
		isOpen = true
		if input.IsOpen != nil {
			isOpen = *input.IsOpen
		}
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		IsOpen:     &isOpen,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// ListMyTasks lists every task the volunteer has rated, open or closed
func (s *TaskService) ListMyTasks(ctx context.Context, volunteerID uint64, params utils.PaginationParams) ([]models.Task, int64, error) {
	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		RatedByVolunteerID: &volunteerID,
		Pagination:         params,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with its creator
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new open task
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if input.Creator == nil || !input.Creator.IsStaff {
		return nil, ErrStaffOnly
	}

	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if input.Score == 0 {
		return nil, ErrInvalidScore
	}
	if input.DateStart.After(input.DateEnd) {
		return nil, ErrInvalidDateRange
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		CreatorID:   input.Creator.ID,
		Score:       input.Score,
		DateStart:   input.DateStart.UTC(),
		DateEnd:     input.DateEnd.UTC(),
		IsOpen:      true,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// UpdateTask applies a partial update. Only the creator may update, and
// is_open only moves from open to closed.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return nil, ErrNotTaskCreator
	}

	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Score != nil {
		if *input.Score == 0 {
			return nil, ErrInvalidScore
		}
		task.Score = *input.Score
	}
	if input.DateStart != nil {
		task.DateStart = input.DateStart.UTC()
	}
	if input.DateEnd != nil {
		task.DateEnd = input.DateEnd.UTC()
	}
	if task.DateStart.After(task.DateEnd) {
		return nil, ErrInvalidDateRange
	}
	if input.IsOpen != nil {
		if *input.IsOpen && !task.IsOpen {
			return nil, ErrTaskReopen
		}
		task.IsOpen = *input.IsOpen
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// GenerateTaskDraftsInput represents input for AI task generation
type GenerateTaskDraftsInput struct {
	Text    string
	Creator *models.User
}

// GenerateTaskDrafts uses AI to propose tasks from free text
func (s *TaskService) GenerateTaskDrafts(ctx context.Context, input GenerateTaskDraftsInput) ([]TaskDraft, error) {
	if input.Creator == nil || !input.Creator.IsStaff {
		return nil, ErrStaffOnly
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrTextRequired
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	drafts, err := s.aiService.GenerateTaskDrafts(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]TaskDraft, 0, len(drafts))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, draft := range drafts {
		draft.Title = strings.TrimSpace(draft.Title)
		if draft.Title == "" {
			continue
		}
		if runes := []rune(draft.Title); len(runes) > constants.MaxTitleLength {
			draft.Title = string(runes[:constants.MaxTitleLength])
		}
		if draft.Score == 0 {
			draft.Score = 1
		}

		if draft.DateEnd != nil && draft.DateEnd.Before(cutoff) {
			draft.DateEnd = nil
		}
		if draft.DateStart != nil && draft.DateEnd != nil && draft.DateStart.After(*draft.DateEnd) {
			draft.DateStart = nil
		}

		valid = append(valid, draft)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}

	return valid, nil
}
