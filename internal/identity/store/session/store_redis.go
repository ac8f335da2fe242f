// Package session holds ephemeral invitation sessions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"meldish/internal/identity/models"
	"meldish/internal/identity/store"
)

// Redis key prefix for invitation sessions
const sessionKeyPrefix = "invitation_session:"

// RedisStore is a Redis-backed session store. This is the production
// implementation: sessions must be shared across instances and must vanish
// on their own when the TTL lapses.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores the session under the token with the given TTL.
// Uses Redis SET with expiry for atomic set-with-expiry.
func (s *RedisStore) Put(ctx context.Context, token string, session *models.InvitationSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal invitation session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("put invitation session: %w", err)
	}
	return nil
}

// Get resolves a session token. A missing key means the session never
// existed or already expired; both map to store.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, token string) (*models.InvitationSession, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation session: %w", err)
	}
	var session models.InvitationSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal invitation session: %w", err)
	}
	return &session, nil
}

// Delete removes a session eagerly. Deleting an absent token is not an
// error; TTL expiry remains the usual cleanup path.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete invitation session: %w", err)
	}
	return nil
}
