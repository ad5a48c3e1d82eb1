package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemaster/backoffice/internal/domain/identity"
)

func TestSQLiteCredentialStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := NewSQLiteCredentialStore(path)
	require.NoError(t, err)

	// Empty store loads an empty session
	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.Token)
	assert.Nil(t, session.User)

	err = store.Save(ctx, identity.Session{
		Token: "tok-123",
		User:  []byte(`{"id":1,"nombre":"Ana"}`),
	})
	require.NoError(t, err)

	// A second store over the same file sees the persisted session
	reopened, err := NewSQLiteCredentialStore(path)
	require.NoError(t, err)

	session, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", session.Token)
	assert.JSONEq(t, `{"id":1,"nombre":"Ana"}`, string(session.User))
}

func TestSQLiteCredentialStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteCredentialStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, identity.Session{Token: "old"}))
	require.NoError(t, store.Save(ctx, identity.Session{Token: "new"}))

	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", session.Token)
}

func TestSQLiteCredentialStore_Clear(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteCredentialStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, identity.Session{
		Token: "tok",
		User:  []byte(`{}`),
	}))
	require.NoError(t, store.Clear(ctx))

	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.Token)
	assert.Nil(t, session.User)

	// Clearing an already-empty store is fine
	require.NoError(t, store.Clear(ctx))
}
