package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	refresh:token:<jti>        -> subject, expires with the refresh token
//	refresh:subject:<subject>  -> set of live jtis for that subject
const (
	tokenKeyPrefix   = "refresh:token:"
	subjectKeyPrefix = "refresh:subject:"
)

// rotateScript swaps the old jti for the new one only if the old jti is still
// live and belongs to the subject.
var rotateScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
redis.call('SREM', KEYS[3], ARGV[3])
redis.call('SADD', KEYS[3], ARGV[4])
redis.call('PEXPIRE', KEYS[3], ARGV[2])
return 1
`)

var revokeScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// RefreshRegistry implements ports.RefreshRegistry on Redis.
type RefreshRegistry struct {
	client *redis.Client
}

// NewRefreshRegistry creates a RefreshRegistry wrapping the given Redis client.
func NewRefreshRegistry(client *redis.Client) *RefreshRegistry {
	return &RefreshRegistry{client: client}
}

// Register records id as a live refresh token of subject for ttl.
func (r *RefreshRegistry) Register(ctx context.Context, subject, id string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, tokenKey(id), subject, ttl)
	pipe.SAdd(ctx, subjectKey(subject), id)
	pipe.PExpire(ctx, subjectKey(subject), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register refresh token: %w", err)
	}
	return nil
}

// Rotate retires oldID and registers newID in one atomic step.
func (r *RefreshRegistry) Rotate(ctx context.Context, subject, oldID, newID string, ttl time.Duration) (bool, error) {
	n, err := rotateScript.Run(ctx, r.client,
		[]string{tokenKey(oldID), tokenKey(newID), subjectKey(subject)},
		subject, ttl.Milliseconds(), oldID, newID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return n == 1, nil
}

// Revoke retires every live refresh token of subject.
func (r *RefreshRegistry) Revoke(ctx context.Context, subject string) error {
	if err := revokeScript.Run(ctx, r.client, []string{subjectKey(subject)}, tokenKeyPrefix).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func tokenKey(id string) string        { return tokenKeyPrefix + id }
func subjectKey(subject string) string { return subjectKeyPrefix + subject }
