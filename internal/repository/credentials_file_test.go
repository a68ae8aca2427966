package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func readUsersFile(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var users map[string]string
	require.NoError(t, json.Unmarshal(data, &users))
	return users
}

func TestFileCredentials_MissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := NewFileCredentialRepository(path, true, nil)

	_, found, err := repo.Lookup(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, found)

	names, err := repo.Usernames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "lookup must not create the file")
}

func TestFileCredentials_InsertAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := NewFileCredentialRepository(path, false, nil)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, "alice", "pw2")
	require.NoError(t, err)
	assert.False(t, inserted, "existing username must not be overwritten")

	password, found, err := repo.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "pw1", password)

	_, found, err = repo.Lookup(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, found, "usernames are case-sensitive")

	_, err = repo.Insert(ctx, "bob", "x")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"alice": "pw1", "bob": "x"}, readUsersFile(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	names, err := repo.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

func TestFileCredentials_ReadsExistingMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"carol": "secret"}`), 0o644))

	repo := NewFileCredentialRepository(path, true, nil)
	password, found, err := repo.Lookup(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "secret", password)
}

func TestFileCredentials_CorruptLenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewFileCredentialRepository(path, false, zap.New(core))
	ctx := context.Background()

	_, found, err := repo.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, logs.FilterMessage("credential file unreadable, treating as empty").Len())

	inserted, err := repo.Insert(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, map[string]string{"alice": "pw"}, readUsersFile(t, path))
}

func TestFileCredentials_CorruptStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`["alice"]`), 0o644))

	repo := NewFileCredentialRepository(path, true, nil)
	ctx := context.Background()

	_, _, err := repo.Lookup(ctx, "alice")
	assert.ErrorIs(t, err, ErrCredentialsCorrupt)

	_, err = repo.Insert(ctx, "alice", "pw")
	assert.ErrorIs(t, err, ErrCredentialsCorrupt)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `["alice"]`, string(data), "strict mode must leave a corrupt file untouched")
}

func TestFileCredentials_NullFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`null`), 0o644))

	repo := NewFileCredentialRepository(path, true, nil)
	inserted, err := repo.Insert(context.Background(), "dave", "pw")
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestFileCredentials_ReadErrorIsIO(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be makes ReadFile fail
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	repo := NewFileCredentialRepository(path, false, nil)
	_, _, err := repo.Lookup(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrIO)
}

func TestFileCredentials_CanceledContext(t *testing.T) {
	repo := NewFileCredentialRepository(filepath.Join(t.TempDir(), "users.json"), false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Insert(ctx, "alice", "pw")
	assert.True(t, errors.Is(err, context.Canceled))
}
