package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const (
	timeFormat    = "2006-01-02 15:04:05"
	sessionKeyTpl = "session:%d" // session:${user}
	tokenPrefix   = "sk-subcrs-"
	sesskeyBytes  = 5
)

// TokenManager keeps API tokens and per-user session state in redis hashes.
type TokenManager struct {
	redis   *redis.Client
	authKey func(userID int64) string
	ttl     time.Duration
}

func NewTokenManager(client *redis.Client, auth *Auth, ttl time.Duration) *TokenManager {
	return &TokenManager{redis: client, authKey: auth.key, ttl: ttl}
}

func randomHex(n int) (string, error) {
	randomBytes := make([]byte, n)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

func (tm *TokenManager) FetchOrCreateUserToken(ctx context.Context, userID int64) (*models.TokenInfo, bool, error) {
	key := tm.authKey(userID)

	token, err := tm.redis.HGet(ctx, key, "token").Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("failed to check token: %w", err)
	}

	now := time.Now().UTC()
	isNewToken := false

	if err == redis.Nil {
		suffix, err := randomHex(12)
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}
		token = tokenPrefix + suffix

		if err := tm.redis.HSet(ctx, key, map[string]interface{}{
			"token":                 token,
			"request_count":         1,
			"last_request_dttm_utc": now.Format(timeFormat),
			"created_dttm_utc":      now.Format(timeFormat),
		}).Err(); err != nil {
			return nil, false, fmt.Errorf("failed to create token: %w", err)
		}

		isNewToken = true
	} else {
		pipe := tm.redis.Pipeline()
		pipe.HIncrBy(ctx, key, "request_count", 1)
		pipe.HSet(ctx, key, "last_request_dttm_utc", now.Format(timeFormat))

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to update token stats: %w", err)
		}
	}

	values, err := tm.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get token info: %w", err)
	}

	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &models.TokenInfo{
		Token:           values["token"],
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}, isNewToken, nil
}

// SessKey returns the user's session key, creating one on first use.
func (tm *TokenManager) SessKey(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf(sessionKeyTpl, userID)

	sesskey, err := tm.redis.HGet(ctx, key, "sesskey").Result()
	if err == nil && sesskey != "" {
		return sesskey, nil
	}
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("failed to read sesskey: %w", err)
	}

	sesskey, err = randomHex(sesskeyBytes)
	if err != nil {
		return "", err
	}

	// a concurrent request may have set one first
	set, err := tm.redis.HSetNX(ctx, key, "sesskey", sesskey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store sesskey: %w", err)
	}
	if !set {
		return tm.redis.HGet(ctx, key, "sesskey").Result()
	}
	if err := tm.redis.Expire(ctx, key, tm.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to set session expiry: %w", err)
	}
	return sesskey, nil
}

func (tm *TokenManager) SaveBreadcrumbs(ctx context.Context, userID int64, b models.Breadcrumbs) error {
	key := fmt.Sprintf(sessionKeyTpl, userID)

	pipe := tm.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"return_course_id":    b.ReturnCourseID,
		"return_course_name":  b.ReturnCourseName,
		"refcourse_course_id": b.RefCourseID,
	})
	pipe.Expire(ctx, key, tm.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save breadcrumbs: %w", err)
	}
	return nil
}

// Breadcrumbs returns nil when no instant redirect happened in this session.
func (tm *TokenManager) Breadcrumbs(ctx context.Context, userID int64) (*models.Breadcrumbs, error) {
	values, err := tm.redis.HGetAll(ctx, fmt.Sprintf(sessionKeyTpl, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read breadcrumbs: %w", err)
	}
	if values["return_course_id"] == "" {
		return nil, nil
	}

	returnID, _ := strconv.ParseInt(values["return_course_id"], 10, 64)
	refID, _ := strconv.ParseInt(values["refcourse_course_id"], 10, 64)
	return &models.Breadcrumbs{
		ReturnCourseID:   returnID,
		ReturnCourseName: values["return_course_name"],
		RefCourseID:      refID,
	}, nil
}
