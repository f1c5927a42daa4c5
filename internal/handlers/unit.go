package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/dto"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/middleware"
	"github.com/yukikurage/volunteer-api/internal/services"
)

// UnitHandler serves units and their invite links.
type UnitHandler struct {
	unitService *services.UnitService
}

func NewUnitHandler(unitService *services.UnitService) *UnitHandler {
	return &UnitHandler{unitService: unitService}
}

// CreateUnit creates a unit owned by the calling staff user
func (h *UnitHandler) CreateUnit(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	unit, err := h.unitService.CreateUnit(c.Request.Context(), services.CreateUnitInput{
		Title:       req.Title,
		Description: req.Description,
		Creator:     user,
	})
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUnitDTO(*unit))
}

// ListMyUnits lists units created by the caller
func (h *UnitHandler) ListMyUnits(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	units, err := h.unitService.ListMyUnits(c.Request.Context(), userID)
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"units": dto.ToUnitDTOs(units)})
}

// GetUnit returns a unit by ID
func (h *UnitHandler) GetUnit(c *gin.Context) {
	unitID, ok := parseID(c, "id")
	if !ok {
		return
	}

	unit, err := h.unitService.GetUnit(c.Request.Context(), unitID)
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUnitDTO(*unit))
}

// CreateLink issues a new invite code for the unit
func (h *UnitHandler) CreateLink(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	unitID, ok := parseID(c, "id")
	if !ok {
		return
	}

	link, err := h.unitService.CreateLink(c.Request.Context(), unitID, userID)
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToLinkDTO(*link))
}

// ListLinks lists a unit's invite links for its creator
func (h *UnitHandler) ListLinks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	unitID, ok := parseID(c, "id")
	if !ok {
		return
	}

	links, err := h.unitService.ListLinks(c.Request.Context(), unitID, userID)
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": dto.ToLinkDTOs(links)})
}

// ResolveLink tells anyone holding a code which unit it belongs to and whether it is still open
func (h *UnitHandler) ResolveLink(c *gin.Context) {
	link, err := h.unitService.ResolveLink(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondUnitError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToResolvedLinkDTO(*link))
}

func respondUnitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrStaffOnly),
		errors.Is(err, services.ErrNotUnitCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUnitNotFound),
		errors.Is(err, services.ErrLinkNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "unit request failed", slog.Any("error", err))
		apierrors.InternalError(c, "Internal server error")
	}
}
