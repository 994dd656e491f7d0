package server_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-portal/internal/server"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUsers(t *testing.T) *server.Users {
	t.Helper()

	db, err := server.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := server.NewUsers(db)
	require.NoError(t, users.EnsureSchema(context.Background()))
	return users
}

func TestUsers_Register(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)

	user, err := users.Register(ctx, &server.User{
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.NotEqual(t, uuid.Nil, user.UUID)

	found, err := users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, user.UUID, found.UUID)
	assert.Equal(t, "hash", found.PasswordHash)
}

func TestUsers_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)

	_, err := users.Register(ctx, &server.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = users.Register(ctx, &server.User{Name: "Other Ada", Email: "ada@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, server.ErrEmailInUse)
}

func TestUsers_FindByEmailNotFound(t *testing.T) {
	users := newTestUsers(t)

	_, err := users.FindByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsers_ListAll(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(t)

	list, err := users.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, email := range []string{"ada@example.com", "grace@example.com", "alan@example.com"} {
		_, err := users.Register(ctx, &server.User{Name: email, Email: email, PasswordHash: "hash"})
		require.NoError(t, err)
	}

	list, err = users.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "ada@example.com", list[0].Email)
	assert.Equal(t, "alan@example.com", list[2].Email)
	assert.Less(t, list[0].ID, list[1].ID)
}
