package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrDuplicateRating  = errors.New("task already marked complete")
	ErrCommentEmpty     = errors.New("comment text is required")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

const maxSanitizePasses = 8

// Upload is a file received from a client
type Upload struct {
	Filename string
	Content  io.Reader
}

// LedgerService records task completions and comments
type LedgerService struct {
	taskRepo   repository.TaskRepository
	ledgerRepo repository.LedgerRepository
	storage    storage.Storage
	policy     *bluemonday.Policy
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(taskRepo repository.TaskRepository, ledgerRepo repository.LedgerRepository, store storage.Storage) *LedgerService {
	return &LedgerService{
		taskRepo:   taskRepo,
		ledgerRepo: ledgerRepo,
		storage:    store,
		policy:     bluemonday.StrictPolicy(),
	}
}

// MarkComplete records that the volunteer completed an open task.
// Archived tasks that are still open can be completed.
func (s *LedgerService) MarkComplete(ctx context.Context, taskID, volunteerID uint64) (*models.Rating, error) {
	if _, err := s.openTask(ctx, taskID); err != nil {
		return nil, err
	}

	rating := &models.Rating{TaskID: taskID, VolunteerID: volunteerID}
	if err := s.ledgerRepo.CreateRating(ctx, rating); err != nil {
		if errors.Is(err, repository.ErrDuplicateRating) {
			return nil, ErrDuplicateRating
		}
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}

	return rating, nil
}

// RevokeCompletion removes the volunteer's own rating of an open task.
// Revoking a completion that does not exist is not an error.
func (s *LedgerService) RevokeCompletion(ctx context.Context, taskID, volunteerID uint64) error {
	if _, err := s.openTask(ctx, taskID); err != nil {
		return err
	}

	if _, err := s.ledgerRepo.DeleteRating(ctx, taskID, volunteerID); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}

// AddCommentInput represents input for commenting on a task
type AddCommentInput struct {
	TaskID      uint64
	VolunteerID uint64
	Text        string
	Photo       *Upload
}

// AddComment appends a comment to an open task. The text is reduced to plain
// text. The photo, if any, is stored as comment/<comment id>.<ext>.
func (s *LedgerService) AddComment(ctx context.Context, input AddCommentInput) (*models.Comment, error) {
	if _, err := s.openTask(ctx, input.TaskID); err != nil {
		return nil, err
	}

	text := s.plainText(input.Text)
	if text == "" {
		return nil, ErrCommentEmpty
	}

	comment := &models.Comment{
		TaskID:      input.TaskID,
		VolunteerID: input.VolunteerID,
		Text:        text,
	}

	var attach func(*models.Comment) error
	var savedKey string
	if input.Photo != nil {
		if _, err := storage.Extension(input.Photo.Filename); err != nil {
			return nil, ErrUnsupportedMedia
		}
		attach = func(c *models.Comment) error {
			key, err := storage.Key(constants.MediaKindComment, c.ID, input.Photo.Filename)
			if err != nil {
				return err
			}
			if err := s.storage.Save(ctx, key, input.Photo.Content); err != nil {
				return fmt.Errorf("failed to store photo: %w", err)
			}
			savedKey = key
			c.Photo = key
			return nil
		}
	}

	if err := s.ledgerRepo.CreateComment(ctx, comment, attach); err != nil {
		if savedKey != "" {
			if delErr := s.storage.Delete(ctx, savedKey); delErr != nil {
				slog.WarnContext(ctx, "failed to remove orphaned photo", slog.String("key", savedKey), slog.Any("error", delErr))
			}
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// ListComments lists a task's comments, oldest first
func (s *LedgerService) ListComments(ctx context.Context, taskID uint64) ([]models.Comment, error) {
	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	comments, err := s.ledgerRepo.ListComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// PhotoPreviews returns, per task, the storage key of the first photo posted in its comments
func (s *LedgerService) PhotoPreviews(ctx context.Context, taskIDs []uint64) (map[uint64]string, error) {
	photos, err := s.ledgerRepo.FirstPhotos(ctx, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo previews: %w", err)
	}
	return photos, nil
}

// plainText strips markup and decodes entities. Decoded text is sanitized
// again until it stops changing, so encoded tags cannot come back as markup.
func (s *LedgerService) plainText(input string) string {
	text := input
	for range maxSanitizePasses {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			return strings.TrimSpace(text)
		}
		text = next
	}
	// Still changing: keep the escaped form rather than anything decoded.
	return strings.TrimSpace(s.policy.Sanitize(text))
}

// openTask loads a task only if it is open. Missing and closed tasks look the same.
func (s *LedgerService) openTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindOpenByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
