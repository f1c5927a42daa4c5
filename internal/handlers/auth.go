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
	"github.com/yukikurage/volunteer-api/internal/middleware"
	"github.com/yukikurage/volunteer-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	metrics     metrics.Recorder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, rec metrics.Recorder) *AuthHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthHandler{
		authService: authService,
		metrics:     rec,
	}
}

// Login exchanges credentials for an access and a refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	_, pair, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.metrics.RecordLogin("password", "failure")
		respondAuthError(c, err)
		return
	}
	h.metrics.RecordLogin("password", "success")

	c.JSON(http.StatusOK, dto.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// Refresh rotates a refresh token. The presented token cannot be used again.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.metrics.RecordLogin("refresh", "failure")
		respondAuthError(c, err)
		return
	}
	h.metrics.RecordLogin("refresh", "success")

	c.JSON(http.StatusOK, dto.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// LoginByLink issues an access token to the volunteer bound to the code.
func (h *AuthHandler) LoginByLink(c *gin.Context) {
	access, err := h.authService.LoginByLinkCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.metrics.RecordLogin("link", "failure")
		respondAuthError(c, err)
		return
	}
	h.metrics.RecordLogin("link", "success")

	c.JSON(http.StatusOK, dto.AccessTokenResponse{Access: access})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	if user, ok := middleware.GetUser(c); ok {
		c.JSON(http.StatusOK, dto.ToUserDTO(*user))
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrUsernameTooLong),
		errors.Is(err, services.ErrInvalidTariff):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, services.ErrInvalidLinkCode):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidCode, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenReused):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "auth request failed", slog.Any("error", err))
		apierrors.InternalError(c, "Internal server error")
	}
}
