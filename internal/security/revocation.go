package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/yukikurage/volunteer-api/internal/repository"
)

// ErrTokenReused is returned when a refresh token id is presented a second time.
var ErrTokenReused = errors.New("refresh token already used")

// RevocationStore remembers exchanged refresh tokens. Consume succeeds once per jti.
type RevocationStore interface {
	Consume(ctx context.Context, jti string, expiresAt time.Time) error
}

// DBRevocationStore keeps revoked ids in the revoked_tokens table.
type DBRevocationStore struct {
	tokens repository.TokenRepository
}

func NewDBRevocationStore(tokens repository.TokenRepository) *DBRevocationStore {
	return &DBRevocationStore{tokens: tokens}
}

func (s *DBRevocationStore) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := s.tokens.Revoke(ctx, jti, expiresAt); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyRevoked) {
			return ErrTokenReused
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

const redisRevokedPrefix = "revoked:refresh:"

// RedisRevocationStore keeps revoked ids as keys that expire with the token.
type RedisRevocationStore struct {
	client rueidis.Client
}

func NewRedisRevocationStore(client rueidis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Consume(ctx context.Context, jti string, expiresAt time.Time) error {
	cmd := s.client.B().Set().
		Key(redisRevokedPrefix + jti).
		Value("1").
		Nx().
		Exat(expiresAt).
		Build()

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		// SET NX replies nil when the key already exists
		if rueidis.IsRedisNil(err) {
			return ErrTokenReused
		}
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

// NewRedisClient connects to a single redis node
func NewRedisClient(addr string) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
}
