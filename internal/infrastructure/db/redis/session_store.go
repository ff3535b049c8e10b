package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the pointer only while it still names the caller's
// session, so a late logout cannot remove a newer login.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionStore keeps each account's active session id in Redis.
// Key format: session:active:<account_id>
type SessionStore struct {
	client redis.UniversalClient
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Bind overwrites the pointer, evicting whatever session held it before.
func (s *SessionStore) Bind(ctx context.Context, accountID int64, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(accountID), sessionID, ttl).Err(); err != nil {
		return fmt.Errorf("session bind: %w", err)
	}
	return nil
}

// Active returns the bound session id, or "" when the key is absent or expired.
func (s *SessionStore) Active(ctx context.Context, accountID int64) (string, error) {
	sid, err := s.client.Get(ctx, s.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session lookup: %w", err)
	}
	return sid, nil
}

// Release removes the pointer if it still equals sessionID.
func (s *SessionStore) Release(ctx context.Context, accountID int64, sessionID string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(accountID)}, sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session release: %w", err)
	}
	return nil
}

func (s *SessionStore) key(accountID int64) string {
	return fmt.Sprintf("session:active:%d", accountID)
}
