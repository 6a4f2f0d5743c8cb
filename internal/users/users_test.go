package users

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{Name: "Jane Doe", Username: "jane"}).DisplayName())
	assert.Equal(t, "jane", (&User{Username: "jane", Email: "jane@example.com"}).DisplayName())
	assert.Equal(t, "jane@example.com", (&User{Email: "jane@example.com"}).DisplayName())
}

func TestResolveID(t *testing.T) {
	id, err := ResolveID(AuthenticatedUser{ID: 12, Authenticated: true})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	id, err = ResolveID(RawUserID(99))
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	_, err = ResolveID(AuthenticatedUser{ID: 12})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = ResolveID((*AuthenticatedUser)(nil))
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = ResolveID(nil)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory(&User{ID: 1, Username: "jane"})
	ctx := context.Background()

	u, err := d.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.Username)

	_, err = d.GetUser(ctx, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = d.GetUser(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`users:
  - id: 1
    username: jane
    name: Jane Doe
    email: jane@example.com
    is_active: true
  - id: 36
    username: bob
`), 0600))

	d, err := LoadDirectory(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())

	u, err := d.GetUser(context.Background(), 36)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.DisplayName())
	assert.False(t, u.IsActive)
}

func TestLoadDirectoryRejectsBadIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: nobody\n"), 0600))

	_, err := LoadDirectory(path)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	u := &User{ID: 3}
	ctx := WithUser(context.Background(), u)
	assert.Same(t, u, FromContext(ctx))
}
