package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/volunteer-api/internal/constants"
	apierrors "github.com/yukikurage/volunteer-api/internal/errors"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/services"
)

const contextKeyUser = "user"

// Authenticator resolves a bearer access token to its identity
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// VolunteerFinder loads the volunteer bound to an identity
type VolunteerFinder interface {
	GetVolunteer(ctx context.Context, userID uint64) (*models.Volunteer, error)
}

// OptionalAuth authenticates the caller when an Authorization header is present.
// A header carrying an invalid token is rejected rather than treated as anonymous.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// RequireAuth checks the caller presented a valid access token
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := bearerToken(c)
		if !present {
			apierrors.Unauthorized(c, "")
			return
		}
		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// RequireVolunteer checks the authenticated identity is a volunteer and stores it in context
func RequireVolunteer(volunteers VolunteerFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		volunteer, err := volunteers.GetVolunteer(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrVolunteerNotFound) {
				apierrors.Forbidden(c, "Only volunteers can perform this action")
				return
			}
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyVolunteer, volunteer)
		c.Next()
	}
}

// RequireStaff checks the authenticated identity is a staff account
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetUser(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}
		if !user.IsStaff {
			apierrors.Forbidden(c, "Only staff accounts can perform this action")
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, auth Authenticator, token string) bool {
	user, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			apierrors.Unauthorized(c, "Invalid or expired token")
			return false
		}
		apierrors.InternalError(c, "")
		return false
	}

	// Store user in context for easy access in handlers
	c.Set(constants.ContextKeyUserID, user.ID)
	c.Set(contextKeyUser, user)
	return true
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// present is true whenever the header is set, even if malformed.
func bearerToken(c *gin.Context) (token string, present bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(value), true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUser retrieves the authenticated identity from context
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(contextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// GetVolunteer retrieves the volunteer set by RequireVolunteer
func GetVolunteer(c *gin.Context) (*models.Volunteer, bool) {
	value, exists := c.Get(constants.ContextKeyVolunteer)
	if !exists {
		return nil, false
	}
	volunteer, ok := value.(*models.Volunteer)
	return volunteer, ok
}
