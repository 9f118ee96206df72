// internal/app/auth.go
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

type Auth struct {
	enabled     bool
	redis       *redis.Client
	keyTemplate string
	tokenHeader string
}

func NewAuth(config *Config, client *redis.Client) *Auth {
	return &Auth{
		enabled:     config.Server.EnableAuth,
		redis:       client,
		keyTemplate: config.Auth.TokenKeyTemplate,
		tokenHeader: config.Auth.TokenHeader,
	}
}

func (a *Auth) Enabled() bool {
	return a.enabled
}

func (a *Auth) TokenHeader() string {
	return a.tokenHeader
}

func (a *Auth) key(userID int64) string {
	return strings.NewReplacer("{user}", strconv.FormatInt(userID, 10)).Replace(a.keyTemplate)
}

func tokensMatch(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// ValidateToken checks a bearer token against the user's token hash.
func (a *Auth) ValidateToken(ctx context.Context, userID int64, header string) error {
	if !a.enabled {
		return nil
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return fmt.Errorf("invalid authorization header format: %w", ErrUnauthorized)
	}
	token := strings.TrimPrefix(header, "Bearer ")

	key := a.key(userID)
	stored, err := a.redis.HGet(ctx, key, "token").Result()
	if err == redis.Nil {
		logger.Debug.Printf("Token not found for key: %s", key)
		return fmt.Errorf("token not found: %w", ErrUnauthorized)
	}
	if err != nil {
		logger.Debug.Printf("Redis error: %v", err)
		return fmt.Errorf("redis error: %w", err)
	}

	if !tokensMatch(stored, token) {
		logger.Debug.Printf("Token mismatch for user %d and what's found in %s", userID, key)
		return fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}

	return nil
}
