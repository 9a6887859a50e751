package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the storage key of the session blob.
const DefaultKey = "udms_session"

// Store persists at most one session record.
type Store interface {
	// Load returns nil when nothing is stored. A blob that fails verification
	// yields ErrTampered.
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, r Record) error
	Delete(ctx context.Context) error
}

// RedisStore keeps the blob under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	codec  Codec
	ttl    time.Duration
}

// NewRedisStore builds a Redis backed Store. ttl of zero keeps the key until logout.
func NewRedisStore(client *redis.Client, key string, codec Codec, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key, codec: codec, ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	blob, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	r, err := s.codec.Decode(blob)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, r Record) error {
	blob, err := s.codec.Encode(r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// MemoryStore keeps the encoded blob in process. Used in tests and when Redis is not configured.
type MemoryStore struct {
	mu    sync.Mutex
	blob  string
	codec Codec
}

// NewMemoryStore builds an in-process Store.
func NewMemoryStore(codec Codec) *MemoryStore {
	return &MemoryStore{codec: codec}
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) (*Record, error) {
	s.mu.Lock()
	blob := s.blob
	s.mu.Unlock()
	if blob == "" {
		return nil, nil
	}
	r, err := s.codec.Decode(blob)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r Record) error {
	blob, err := s.codec.Encode(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(context.Context) error {
	s.mu.Lock()
	s.blob = ""
	s.mu.Unlock()
	return nil
}

// Raw exposes the stored blob.
func (s *MemoryStore) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob
}

// SetRaw overwrites the stored blob without encoding.
func (s *MemoryStore) SetRaw(blob string) {
	s.mu.Lock()
	s.blob = blob
	s.mu.Unlock()
}
