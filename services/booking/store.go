package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinicbook/models"
	"clinicbook/utils"

	"github.com/go-redis/redis/v8"
)

// RedisSessionStore keeps flow sessions in Redis with a TTL. Expiry destroys
// the draft; there is no cross-session persistence.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisSessionStore builds a session store on an existing Redis client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func sessionKey(sessionID string) string {
	return utils.SessionKeyPrefix + sessionID
}

// Save marshals the session and refreshes its TTL.
func (r *RedisSessionStore) Save(ctx context.Context, session *models.FlowSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	if err := r.Client.Set(ctx, sessionKey(session.SessionID), data, r.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}

// Load returns the session, or a session_not_found flow error when it is
// missing or expired.
func (r *RedisSessionStore) Load(ctx context.Context, sessionID string) (*models.FlowSession, error) {
	data, err := r.Client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, NewFlowError(ReasonSessionNotFound, "booking session not found or expired")
		}
		return nil, fmt.Errorf("failed to load booking session: %w", err)
	}
	var session models.FlowSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse booking session: %w", err)
	}
	return &session, nil
}

// Delete removes the session.
func (r *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.Client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete booking session: %w", err)
	}
	return nil
}
