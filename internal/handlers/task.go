package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/metrics"
	"github.com/yukikurage/volunteer-api/internal/middleware"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

type TaskHandler struct {
	taskService    *services.TaskService
	ledgerService  *services.LedgerService
	media          Media
	maxUploadBytes int64
	metrics        metrics.Recorder
	now            func() time.Time
}

func NewTaskHandler(
	taskService *services.TaskService,
	ledgerService *services.LedgerService,
	media Media,
	maxUploadBytes int64,
	rec metrics.Recorder,
) *TaskHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &TaskHandler{
		taskService:    taskService,
		ledgerService:  ledgerService,
		media:          media,
		maxUploadBytes: maxUploadBytes,
		metrics:        rec,
		now:            time.Now,
	}
}

// ListTasks lists tasks. Anonymous callers get closed tasks only;
// authenticated callers may filter with ?is_open=, which defaults to true.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	_, authenticated := middleware.GetUserID(c)

	var isOpen *bool
	if raw := c.Query("is_open"); authenticated && raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid is_open")
			return
		}
		isOpen = &value
	}

	params := utils.GetPaginationParams(c)
	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), services.ListTasksInput{
		Authenticated: authenticated,
		IsOpen:        isOpen,
		Pagination:    params,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.respondTaskList(c, tasks, total, params)
}

// GetTask returns a task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	photos, err := h.ledgerService.PhotoPreviews(c.Request.Context(), []uint64{task.ID})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, photos[task.ID], h.media.urls(c), h.now()))
}

// CreateTask creates an open task owned by the calling staff user
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Score:       req.Score,
		DateStart:   req.DateStart,
		DateEnd:     req.DateEnd,
		Creator:     user,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task, "", h.media.urls(c), h.now()))
}

// UpdateTask applies a partial update. Only the creator may do so.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, userID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Score:       req.Score,
		DateStart:   req.DateStart,
		DateEnd:     req.DateEnd,
		IsOpen:      req.IsOpen,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	photos, err := h.ledgerService.PhotoPreviews(c.Request.Context(), []uint64{task.ID})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, photos[task.ID], h.media.urls(c), h.now()))
}

// GenerateTasks proposes task drafts from free text. Nothing is saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateTaskDrafts(c.Request.Context(), services.GenerateTaskDraftsInput{
		Text:    req.Text,
		Creator: user,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDraftDTOs(drafts)})
}

// AddComment posts a comment on an open task. It accepts JSON, or a multipart
// form carrying "text" and an optional "photo".
func (h *TaskHandler) AddComment(c *gin.Context) {
	volunteer, ok := middleware.GetVolunteer(c)
	if !ok {
		apierrors.Forbidden(c, "Only volunteers can comment")
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	limitBody(c, h.maxUploadBytes)

	var req dto.CreateCommentRequest
	var photo *services.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			respondUploadError(c, err)
			return
		}
		upload, closeUpload, err := formUpload(c, "photo")
		if err != nil {
			respondUploadError(c, err)
			return
		}
		defer closeUpload()
		photo = upload
	} else if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.ledgerService.AddComment(c.Request.Context(), services.AddCommentInput{
		TaskID:      taskID,
		VolunteerID: volunteer.ID,
		Text:        req.Text,
		Photo:       photo,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	h.metrics.RecordComment()

	comment.Volunteer = *volunteer
	c.JSON(http.StatusOK, dto.ToCommentDTO(*comment, h.media.urls(c)))
}

// ListComments lists a task's comments, oldest first
func (h *TaskHandler) ListComments(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := h.ledgerService.ListComments(c.Request.Context(), taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments, h.media.urls(c))})
}

func (h *TaskHandler) respondTaskList(c *gin.Context, tasks []models.Task, total int64, params utils.PaginationParams) {
	ids := make([]uint64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}

	photos, err := h.ledgerService.PhotoPreviews(c.Request.Context(), ids)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(
		tasks, photos, h.media.urls(c), h.now(),
		utils.NewPaginationResponse(params, total),
	))
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrStaffOnly),
		errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskReopen):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidOperation, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrTextRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidOperation, err.Error()))
	default:
		slog.ErrorContext(c.Request.Context(), "task request failed", slog.Any("error", err))
		apierrors.InternalError(c, "Internal server error")
	}
}

// respondLedgerError maps rating and comment failures. A missing or closed
// task is a client error here rather than a 404.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeNotFound, "task not found or closed")
	case errors.Is(err, services.ErrDuplicateRating):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrCommentEmpty),
		errors.Is(err, services.ErrUnsupportedMedia):
		apierrors.BadRequest(c, err.Error())
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondUploadError(c, err)
			return
		}
		slog.ErrorContext(c.Request.Context(), "ledger request failed", slog.Any("error", err))
		apierrors.InternalError(c, "Internal server error")
	}
}
