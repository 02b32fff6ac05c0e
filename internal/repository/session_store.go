package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nutriscan-backend/pkg/keygen"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

const sessionKeyPrefix = "session:"

// SessionStore keeps login sessions in Redis. Expiry is handled by the
// key TTL, so stale sessions vanish without a cleanup job; logout
// deletes the key eagerly.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore creates a new SessionStore with the given lifetime.
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Create issues a new opaque session id for the user.
func (s *SessionStore) Create(ctx context.Context, userID uint) (string, error) {
	sid, err := keygen.NewSessionID()
	if err != nil {
		return "", err
	}
	value := strconv.FormatUint(uint64(userID), 10)
	if err := s.rdb.Set(ctx, sessionKeyPrefix+sid, value, s.ttl).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

// Get resolves a session id to the owning user id.
func (s *SessionStore) Get(ctx context.Context, sid string) (uint, error) {
	value, err := s.rdb.Get(ctx, sessionKeyPrefix+sid).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	userID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, ErrSessionNotFound
	}
	return uint(userID), nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+sid).Err()
}

// TTL returns the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}
