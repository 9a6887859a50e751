package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultThemeKey is the storage key of the theme flag.
const DefaultThemeKey = "theme"

// Theme is the console colour scheme.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts light or dark in any case.
func ParseTheme(raw string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	}
	return "", false
}

// ThemeStore persists the theme flag. Missing or unreadable values fall back to light.
type ThemeStore interface {
	Theme(ctx context.Context) (Theme, error)
	SetTheme(ctx context.Context, t Theme) error
}

// RedisThemeStore keeps the flag in Redis.
type RedisThemeStore struct {
	client *redis.Client
	key    string
}

// NewRedisThemeStore builds a Redis backed ThemeStore.
func NewRedisThemeStore(client *redis.Client, key string) *RedisThemeStore {
	if key == "" {
		key = DefaultThemeKey
	}
	return &RedisThemeStore{client: client, key: key}
}

// Theme implements ThemeStore.
func (s *RedisThemeStore) Theme(ctx context.Context) (Theme, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ThemeLight, nil
		}
		return ThemeLight, fmt.Errorf("session: load theme: %w", err)
	}
	if t, ok := ParseTheme(raw); ok {
		return t, nil
	}
	return ThemeLight, nil
}

// SetTheme implements ThemeStore.
func (s *RedisThemeStore) SetTheme(ctx context.Context, t Theme) error {
	if err := s.client.Set(ctx, s.key, string(t), 0).Err(); err != nil {
		return fmt.Errorf("session: save theme: %w", err)
	}
	return nil
}

// MemoryThemeStore keeps the flag in process.
type MemoryThemeStore struct {
	mu    sync.Mutex
	theme Theme
}

// Theme implements ThemeStore.
func (s *MemoryThemeStore) Theme(context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == "" {
		return ThemeLight, nil
	}
	return s.theme, nil
}

// SetTheme implements ThemeStore.
func (s *MemoryThemeStore) SetTheme(_ context.Context, t Theme) error {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
	return nil
}
