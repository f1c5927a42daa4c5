package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/volunteer-api/internal/constants"
	"github.com/yukikurage/volunteer-api/internal/models"
	"github.com/yukikurage/volunteer-api/internal/repository"
	"github.com/yukikurage/volunteer-api/internal/security"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTooLong      = errors.New("username too long")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidTariff        = errors.New("invalid tariff")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrInvalidLinkCode      = errors.New("code does not belong to a volunteer")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenReused          = errors.New("refresh token already used")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo    repository.UserRepository
	unitRepo    repository.UnitRepository
	tokens      *security.TokenManager
	revocations security.RevocationStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	unitRepo repository.UnitRepository,
	tokens *security.TokenManager,
	revocations security.RevocationStore,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		unitRepo:    unitRepo,
		tokens:      tokens,
		revocations: revocations,
	}
}

// CreateUserInput represents the information for an administratively created identity.
type CreateUserInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
	Tariff    models.Tariff
	IsStaff   bool
}

// CreateUser creates an identity outside of invite redemption.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username, err := validateCredentials(input.Username, input.Password)
	if err != nil {
		return nil, err
	}
	if input.Tariff == "" {
		input.Tariff = models.TariffFree
	}
	if !input.Tariff.Valid() {
		return nil, ErrInvalidTariff
	}

	hashedPassword, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Tariff:       input.Tariff,
		IsStaff:      input.IsStaff,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and issues an access and a refresh token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, security.TokenPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, security.TokenPair{}, ErrInvalidCredentials
		}
		return nil, security.TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPassword(user.PasswordHash, input.Password) {
		return nil, security.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user.ID)
	if err != nil {
		return nil, security.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.touchLastLogin(ctx, user.ID)
	return user, pair, nil
}

// LoginByLinkCode issues an access token for the volunteer already bound to code.
// An unknown code and a code nobody has redeemed yet fail the same way.
func (s *AuthService) LoginByLinkCode(ctx context.Context, code string) (string, error) {
	link, err := s.unitRepo.FindLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidLinkCode
		}
		return "", fmt.Errorf("failed to find link: %w", err)
	}
	if link.Volunteer == nil {
		return "", ErrInvalidLinkCode
	}

	access, err := s.tokens.GenerateAccessToken(link.Volunteer.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.touchLastLogin(ctx, link.Volunteer.UserID)
	return access, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (security.TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return security.TokenPair{}, ErrInvalidToken
	}

	if _, err := s.userRepo.FindByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return security.TokenPair{}, ErrInvalidToken
		}
		return security.TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.revocations.Consume(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, security.ErrTokenReused) {
			return security.TokenPair{}, ErrTokenReused
		}
		return security.TokenPair{}, err
	}

	pair, err := s.tokens.GeneratePair(claims.UserID)
	if err != nil {
		return security.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return pair, nil
}

// Authenticate resolves an access token to its identity.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(accessToken, security.TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) touchLastLogin(ctx context.Context, userID uint64) {
	if err := s.userRepo.TouchLastLogin(ctx, userID, time.Now().UTC()); err != nil {
		slog.WarnContext(ctx, "failed to record last login", slog.Uint64("user_id", userID), slog.Any("error", err))
	}
}

// validateCredentials trims the username and checks both fields.
func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if len(username) > constants.MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	return username, nil
}
