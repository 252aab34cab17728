package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix  = "caremarket:idem:"
	pendingMarker      = "pending"
	defaultIdempotency = 24 * time.Hour
)

var ErrRequestInProgress = errors.New("idempotent_request_in_progress")

// Record is a stored response replayed for a repeated Idempotency-Key.
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore keeps responses keyed by scope and client key. Bodies
// are snappy-compressed. A nil client disables the store.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, cfg config.Config) *IdempotencyStore {
	ttl := cfg.Redis.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotency
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Enabled() bool {
	return s != nil && s.client != nil
}

func storageKey(scope, key string) string {
	return idempotencyPrefix + scope + ":" + key
}

// Lookup returns the stored record, nil when the key is unknown, or
// ErrRequestInProgress while the first request is still running.
func (s *IdempotencyStore) Lookup(ctx context.Context, scope, key string) (*Record, error) {
	if !s.Enabled() {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, storageKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, ErrRequestInProgress
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(decoded, &record); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &record, nil
}

// Reserve claims the key for the current request. It returns false when
// another request already holds or completed it.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (bool, error) {
	if !s.Enabled() {
		return true, nil
	}
	return s.client.SetNX(ctx, storageKey(scope, key), pendingMarker, s.ttl).Result()
}

func (s *IdempotencyStore) Save(ctx context.Context, scope, key string, record Record) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, storageKey(scope, key), snappy.Encode(nil, payload), s.ttl).Err()
}

// Release drops a reservation so the client can retry after a failure.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Del(ctx, storageKey(scope, key)).Err()
}
