package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/kv"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "financas.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestGet_MissingKey(t *testing.T) {
	s, _ := openTestStore(t)

	v, ok, err := s.Get(context.Background(), kv.UsersKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestSetAndGet_InsertThenUpdate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, kv.UsersKey, []byte(`[1]`)))
	v, ok, err := s.Get(ctx, kv.UsersKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(v))

	require.NoError(t, s.Set(ctx, kv.UsersKey, []byte(`[1,2]`)))
	v, ok, err = s.Get(ctx, kv.UsersKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, string(v))
}

func TestRemove_Idempotent(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, kv.CurrentUserKey, []byte(`{}`)))
	require.NoError(t, s.Remove(ctx, kv.CurrentUserKey))
	require.NoError(t, s.Remove(ctx, kv.CurrentUserKey))

	_, ok, err := s.Get(ctx, kv.CurrentUserKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnerPartitionsAreIsolated(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, kv.TransactionsOf("u1"), []byte(`"a"`)))
	require.NoError(t, s.Set(ctx, kv.TransactionsOf("u2"), []byte(`"b"`)))
	require.NoError(t, s.Set(ctx, kv.CategoriesOf("u1"), []byte(`"c"`)))

	v, _, err := s.Get(ctx, kv.TransactionsOf("u1"))
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(v))

	require.NoError(t, s.Remove(ctx, kv.TransactionsOf("u1")))
	_, ok, err := s.Get(ctx, kv.TransactionsOf("u2"))
	require.NoError(t, err)
	assert.True(t, ok, "removing one owner's key must not touch another's")
}

func TestOpen_ReopenKeepsDataAndSkipsMigrations(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, s, kv.CredentialsKey, map[string]string{"ana@x.com": "secret1"}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	creds, ok, err := kv.Get[map[string]string](ctx, reopened, kv.CredentialsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret1", creds["ana@x.com"])
}
