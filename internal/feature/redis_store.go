package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout in Redis. Window and expanding state are JSON blobs; fraud-rate
// counters live in a hash so increments are atomic server-side.
const (
	windowKeyPrefix    = "pl:win:"
	expandingKeyPrefix = "pl:exp:"
	rateKeyPrefix      = "pl:rate:"

	rateFieldTotal = "total"
	rateFieldFraud = "fraud"

	// windowTTL exceeds the 7d retention so idle keys expire on their own.
	windowTTL = 8 * 24 * time.Hour
)

// RedisStore is the serving-time Store. Every call inherits the caller's
// context deadline; a slow or unreachable Redis surfaces as
// ErrStoreUnavailable so the scorer can fail fast instead of blocking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an initialized go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *RedisStore) GetWindow(ctx context.Context, key EntityKey) (*WindowState, error) {
	st := &WindowState{}
	if err := s.getJSON(ctx, windowKeyPrefix+key.String(), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *RedisStore) PutWindow(ctx context.Context, key EntityKey, st *WindowState) error {
	return s.putJSON(ctx, windowKeyPrefix+key.String(), st, windowTTL)
}

func (s *RedisStore) GetExpanding(ctx context.Context, key EntityKey) (*ExpandingState, error) {
	st := &ExpandingState{}
	if err := s.getJSON(ctx, expandingKeyPrefix+key.String(), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *RedisStore) PutExpanding(ctx context.Context, key EntityKey, st *ExpandingState) error {
	return s.putJSON(ctx, expandingKeyPrefix+key.String(), st, 0)
}

func (s *RedisStore) GetFraudRate(ctx context.Context, key EntityKey) (*FraudRateState, error) {
	fields, err := s.client.HGetAll(ctx, rateKeyPrefix+key.String()).Result()
	if err != nil {
		return nil, storeErr("hgetall "+key.String(), err)
	}

	st := &FraudRateState{}
	if raw, ok := fields[rateFieldTotal]; ok {
		fmt.Sscanf(raw, "%d", &st.TxCount)
	}
	if raw, ok := fields[rateFieldFraud]; ok {
		fmt.Sscanf(raw, "%d", &st.FraudCount)
	}
	return st, nil
}

func (s *RedisStore) AddFraudOutcome(ctx context.Context, key EntityKey, fraud bool) error {
	rkey := rateKeyPrefix + key.String()
	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, rkey, rateFieldTotal, 1)
	if fraud {
		pipe.HIncrBy(ctx, rkey, rateFieldFraud, 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("hincrby "+key.String(), err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, rkey string, dst any) error {
	raw, err := s.client.Get(ctx, rkey).Bytes()
	if err == redis.Nil {
		return nil // cold start: leave dst zero-valued
	}
	if err != nil {
		return storeErr("get "+rkey, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", rkey, err)
	}
	return nil
}

func (s *RedisStore) putJSON(ctx context.Context, rkey string, src any, ttl time.Duration) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rkey, err)
	}
	if err := s.client.Set(ctx, rkey, raw, ttl).Err(); err != nil {
		return storeErr("set "+rkey, err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("redis %s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
