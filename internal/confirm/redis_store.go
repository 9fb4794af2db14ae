package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces confirmation keys.
const DefaultKeyPrefix = "riskops:confirm:"

// ExpiryGrace keeps a key alive past ExpiresAt so a late redemption is
// reported as expired instead of not found.
const ExpiryGrace = 10 * time.Minute

// putScript inserts the hash only if the key is new, then sets its expiry.
var putScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'owner', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[3])
return 1
`)

// takeScript is the compare-and-delete redemption primitive.
// Returns {0} when absent, {1} on owner mismatch, {2, data} when taken.
var takeScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[1], 'owner')
if not owner then
	return {0}
end
if owner ~= ARGV[1] then
	return {1}
end
local data = redis.call('HGET', KEYS[1], 'data')
redis.call('DEL', KEYS[1])
return {2, data}
`)

// RedisStore keeps pending confirmations in Redis hashes with per-key expiry,
// so any instance behind a load balancer can redeem them.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultKeyPrefix}
}

// WithPrefix overrides the key prefix.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	s.prefix = prefix
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(ctx context.Context, p *Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending confirmation: %w", err)
	}
	expireAt := p.ExpiresAt.Add(ExpiryGrace).UnixMilli()
	res, err := putScript.Run(ctx, s.client, []string{s.key(p.ID)}, p.UserID, data, expireAt).Int()
	if err != nil {
		return fmt.Errorf("store pending confirmation: %w", err)
	}
	if res == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Pending, error) {
	data, err := s.client.HGet(ctx, s.key(id), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pending confirmation: %w", err)
	}
	return decodePending(data)
}

func (s *RedisStore) Take(ctx context.Context, id, owner string) (*Pending, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.key(id)}, owner).Slice()
	if err != nil {
		return nil, fmt.Errorf("redeem pending confirmation: %w", err)
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}
	code, _ := res[0].(int64)
	switch code {
	case 1:
		return nil, ErrForbidden
	case 2:
		if len(res) < 2 {
			return nil, fmt.Errorf("redeem pending confirmation: malformed script reply")
		}
		data, _ := res[1].(string)
		return decodePending([]byte(data))
	default:
		return nil, ErrNotFound
	}
}

// DeleteExpired is a no-op: Redis evicts keys at ExpiresAt + ExpiryGrace.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func decodePending(data []byte) (*Pending, error) {
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending confirmation: %w", err)
	}
	return &p, nil
}
