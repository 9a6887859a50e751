package session

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
)

func sampleRecord() Record {
	return Record{
		Token:       "tok-1",
		UserID:      "s1001",
		Name:        "John Doe",
		Email:       "s1001@university.edu",
		Role:        shared.RoleStudent,
		Permissions: []shared.Permission{shared.PermSubmitMaintenance},
		Points:      1450,
		Level:       5,
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	store := NewRedisStore(client, "", NewCodec("secret"), 0)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, sampleRecord()))
	assert.True(t, mr.Exists(DefaultKey))
	raw, err := mr.Get(DefaultKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "StudentTemp", "secrets are never persisted")

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sampleRecord(), *got)

	require.NoError(t, store.Delete(ctx))
	assert.False(t, mr.Exists(DefaultKey))
	require.NoError(t, store.Delete(ctx))
}

func TestRedisStoreDetectsTampering(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	store := NewRedisStore(client, "", NewCodec("secret"), 0)
	require.NoError(t, store.Save(ctx, sampleRecord()))

	raw, err := mr.Get(DefaultKey)
	require.NoError(t, err)
	body, sig, _ := strings.Cut(raw, ".")
	forged := sampleRecord()
	forged.Permissions = shared.CoreScopes()
	forgedBlob, err := NewCodec("other").Encode(forged)
	require.NoError(t, err)
	forgedBody, _, _ := strings.Cut(forgedBlob, ".")
	require.NoError(t, mr.Set(DefaultKey, forgedBody+"."+sig))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrTampered)

	require.NoError(t, mr.Set(DefaultKey, body))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestMemoryStoreUsesSameCodec(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewCodec("k"))
	require.NoError(t, store.Save(ctx, sampleRecord()))
	assert.Contains(t, store.Raw(), ".")

	store.SetRaw("garbage")
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrTampered)

	require.NoError(t, store.Delete(ctx))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordSanitize(t *testing.T) {
	r := sampleRecord()
	r.Role = "student"
	r.Permissions = []shared.Permission{"submit-maintenance", "launch-missiles", "submit-maintenance"}
	clean, ok := r.Sanitize()
	require.True(t, ok)
	assert.Equal(t, shared.RoleStudent, clean.Role)
	assert.Equal(t, []shared.Permission{shared.PermSubmitMaintenance}, clean.Permissions)

	r.Role = "JANITOR"
	_, ok = r.Sanitize()
	assert.False(t, ok)
}

func TestThemeStores(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	redisThemes := NewRedisThemeStore(client, "")

	theme, err := redisThemes.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	require.NoError(t, redisThemes.SetTheme(ctx, ThemeDark))
	raw, err := mr.Get(DefaultThemeKey)
	require.NoError(t, err)
	assert.Equal(t, "dark", raw)

	require.NoError(t, mr.Set(DefaultThemeKey, "neon"))
	theme, err = redisThemes.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	mem := &MemoryThemeStore{}
	require.NoError(t, mem.SetTheme(ctx, ThemeDark))
	theme, _ = mem.Theme(ctx)
	assert.Equal(t, ThemeDark, theme)

	_, ok := ParseTheme(" DARK ")
	assert.True(t, ok)
}
