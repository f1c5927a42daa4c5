package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/middleware"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/utils"
)

// Redeem consumes an invite code and registers the caller as a volunteer of its unit.
func (h *VolunteerHandler) Redeem(c *gin.Context) {
	var req dto.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordRedemption("invalid")
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.volunteerService.Redeem(c.Request.Context(), services.RedeemInput{
		Code:      req.Code,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	h.metrics.RecordRedemption(redemptionOutcome(err))
	if err != nil {
		respondVolunteerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToVolunteerDTO(*profile, h.media.urls(c)))
}

// Profile returns the caller's volunteer record with its unit and score
func (h *VolunteerHandler) Profile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.volunteerService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondVolunteerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVolunteerDTO(*profile, h.media.urls(c)))
}

// UpdateAvatar replaces the caller's avatar with the multipart "avatar" file
func (h *VolunteerHandler) UpdateAvatar(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	limitBody(c, h.maxUploadBytes)
	upload, closeUpload, err := formUpload(c, "avatar")
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer closeUpload()
	if upload == nil {
		apierrors.BadRequest(c, "avatar file is required")
		return
	}

	if _, err := h.volunteerService.UpdateAvatar(c.Request.Context(), userID, *upload); err != nil {
		respondVolunteerError(c, err)
		return
	}

	profile, err := h.volunteerService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondVolunteerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVolunteerDTO(*profile, h.media.urls(c)))
}

// ListMyTasks lists every task the caller has marked complete
func (h *VolunteerHandler) ListMyTasks(c *gin.Context) {
	volunteer, ok := middleware.GetVolunteer(c)
	if !ok {
		apierrors.Forbidden(c, "Only volunteers can perform this action")
		return
	}

	params := utils.GetPaginationParams(c)
	tasks, total, err := h.tasks.taskService.ListMyTasks(c.Request.Context(), volunteer.ID, params)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	h.tasks.respondTaskList(c, tasks, total, params)
}

// MarkComplete records that the caller completed an open task
func (h *VolunteerHandler) MarkComplete(c *gin.Context) {
	volunteer, ok := middleware.GetVolunteer(c)
	if !ok {
		apierrors.Forbidden(c, "Only volunteers can perform this action")
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rating, err := h.tasks.ledgerService.MarkComplete(c.Request.Context(), taskID, volunteer.ID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	h.metrics.RecordRating()

	c.JSON(http.StatusOK, dto.ToRatingDTO(*rating))
}

// RevokeCompletion removes the caller's own completion of an open task
func (h *VolunteerHandler) RevokeCompletion(c *gin.Context) {
	volunteer, ok := middleware.GetVolunteer(c)
	if !ok {
		apierrors.Forbidden(c, "Only volunteers can perform this action")
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.ledgerService.RevokeCompletion(c.Request.Context(), taskID, volunteer.ID); err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Completion revoked"})
}
