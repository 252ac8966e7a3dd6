package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid secret key"},
		{name: "traversal", key: "../escape", wantErr: "invalid secret key"},
		{name: "deep traversal", key: "../../secret", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "snip/default/token"

	require.NoError(t, store.Put(context.Background(), key, "A1"))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "A1", got)

	info, err := os.Stat(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMod), info.Mode().Perm())
}

func TestStorePutReplacesValueWithoutLeavingTempFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "snip/default/token"

	require.NoError(t, store.Put(context.Background(), key, "A1"))
	require.NoError(t, store.Put(context.Background(), key, "A2"))

	got, err := NewStore(root).Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "A2", got)

	entries, err := os.ReadDir(filepath.Join(root, "snip", "default"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token", entries[0].Name())
}

func TestStoreGetMissingSecretReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "snip/default/refreshToken")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	key := "snip/default/token"

	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))
}

func TestStoreHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Put(ctx, "snip/default/token", "A1"), context.Canceled)
}

func TestStoreGetTightensLoosePermissionsAndTrimsNewline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "snip", "default", "refreshToken")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("R1\n"), 0o644))

	got, err := NewStore(root).Get(context.Background(), "snip/default/refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "R1", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMod), info.Mode().Perm())
}

func TestStoreDeletePrunesEmptyProfileDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "snip/default/token", "A1"))
	require.NoError(t, store.Put(ctx, "snip/default/refreshToken", "R1"))
	require.NoError(t, store.Put(ctx, "snip/work/token", "W1"))

	require.NoError(t, store.Delete(ctx, "snip/default/token"))
	assert.DirExists(t, filepath.Join(root, "snip", "default"))

	require.NoError(t, store.Delete(ctx, "snip/default/refreshToken"))
	assert.NoDirExists(t, filepath.Join(root, "snip", "default"))
	assert.DirExists(t, filepath.Join(root, "snip", "work"))
	assert.DirExists(t, root)
}
