package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/metrics"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

// VolunteerHandler serves the volunteer directory and the caller's own
// volunteer resources under /api/my.
type VolunteerHandler struct {
	volunteerService *services.VolunteerService
	tasks            *TaskHandler
	media            Media
	maxUploadBytes   int64
	metrics          metrics.Recorder
}

func NewVolunteerHandler(
	volunteerService *services.VolunteerService,
	tasks *TaskHandler,
	media Media,
	maxUploadBytes int64,
	rec metrics.Recorder,
) *VolunteerHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &VolunteerHandler{
		volunteerService: volunteerService,
		tasks:            tasks,
		media:            media,
		maxUploadBytes:   maxUploadBytes,
		metrics:          rec,
	}
}

// Rank lists every volunteer ordered by ascending score
func (h *VolunteerHandler) Rank(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	ranked, total, err := h.volunteerService.Rank(c.Request.Context(), params)
	if err != nil {
		respondVolunteerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVolunteerListResponse(
		ranked, h.media.urls(c), utils.NewPaginationResponse(params, total),
	))
}

func respondVolunteerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLinkNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrLinkConsumed):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrUsernameTooLong),
		errors.Is(err, services.ErrUnsupportedMedia):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrVolunteerNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "volunteer request failed", slog.Any("error", err))
		apierrors.InternalError(c, "Internal server error")
	}
}

// redemptionOutcome labels a redeem attempt for metrics
func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, services.ErrLinkNotFound):
		return "unknown_code"
	case errors.Is(err, services.ErrLinkConsumed):
		return "consumed"
	case errors.Is(err, services.ErrUsernameTaken):
		return "duplicate_username"
	case errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrUsernameTooLong):
		return "invalid"
	default:
		return "error"
	}
}
