package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	token, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save(ctx, "tok-1"))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, s.Save(ctx, "tok-2"))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	exerciseStore(t, NewFile(path, ""))
}

func TestFileKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o600))

	s := NewFile(path, "")
	require.NoError(t, s.Save(context.Background(), "tok"))
	require.NoError(t, s.Clear(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(data))
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	_, err := NewFile(path, "").Load(context.Background())
	require.Error(t, err)
}

func TestRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, NewRedis(client, "", "", 0))
}

func TestRedisTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedis(client, "test", "auth_token", time.Minute)
	require.NoError(t, s.Save(context.Background(), "tok"))
	assert.Equal(t, time.Minute, srv.TTL("test:session:auth_token"))

	srv.FastForward(2 * time.Minute)
	token, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}
