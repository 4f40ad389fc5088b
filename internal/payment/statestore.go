package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// StateStore holds OAuth authorization state tokens. Each token is valid
// for a short window and is consumed exactly once on callback, which makes
// replaying a callback URL useless.
type StateStore interface {
	Save(ctx context.Context, state, code string) error
	Consume(ctx context.Context, state string) (string, bool)
}

const stateKeyPrefix = "stripe:connect:state:"

type RedisStateStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{Client: client, TTL: ttl}
}

func (s *RedisStateStore) Save(ctx context.Context, state, code string) error {
	ok, err := s.Client.SetNX(ctx, stateKeyPrefix+state, code, s.TTL).Result()
	if err != nil {
		return fmt.Errorf("failed to store connect state: %w", err)
	}
	if !ok {
		return errors.New("connect state token already exists")
	}
	return nil
}

// Consume removes the state token and returns the code bound to it.
// A missing or expired token returns false.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, bool) {
	code, err := s.Client.GetDel(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		return "", false
	}
	return code, true
}
