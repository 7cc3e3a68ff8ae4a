package authclient

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	store := NewFileStore(path)

	pair, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())

	require.NoError(t, store.Save(ctx, TokenPair{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, TokenPair{AccessToken: "a", RefreshToken: "r"}, pair)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	pair, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}
