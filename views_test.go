package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHelpers(t *testing.T) {
	helpers := TemplateHelpers(nil)

	routes, ok := helpers["routes"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "/login", routes["login"])
	assert.Equal(t, "/logout", routes["logout"])
	assert.NotEmpty(t, helpers["app_name"])
}

func TestTemplateHelpersWithSession(t *testing.T) {
	user := testUser()
	helpers := TemplateHelpersWithSession(DefaultPortalRoutes(), Snapshot{State: StateAuthenticated, User: user})

	assert.Equal(t, true, helpers["is_authenticated"])
	assert.Equal(t, false, helpers["is_restoring"])
	assert.Same(t, user, helpers[TemplateUserKey])

	helpers = TemplateHelpersWithSession(DefaultPortalRoutes(), Snapshot{State: StateRestoring})
	assert.Equal(t, true, helpers["is_restoring"])
	assert.NotContains(t, helpers, TemplateUserKey)
}

func TestViewContext_DataWins(t *testing.T) {
	out := viewContext(map[string]any{"a": 1, "b": 2}, fiber.Map{"b": 3})
	assert.Equal(t, fiber.Map{"a": 1, "b": 3}, out)
}

func TestContextUser(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	user := testUser()
	got, ok := FromContext(WithContext(context.Background(), user))
	assert.True(t, ok)
	assert.Same(t, user, got)

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestSessionContext(t *testing.T) {
	store := NewMemoryStore()
	seedSession(store, testUserJSON, "tok")
	m := NewManager(new(MockTransport), store)
	require.NoError(t, m.Restore(context.Background()))

	var fromRouter, fromCtx *User
	srv := newTestServer(nil)
	srv.Router().Use(SessionContext(m))
	srv.Router().Get("/", func(ctx router.Context) error {
		fromRouter, _ = UserFromRouter(ctx)
		fromCtx, _ = FromContext(ctx.Context())
		return ctx.NoContent(http.StatusNoContent)
	})

	res, err := srv.WrappedRouter().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	require.NotNil(t, fromRouter)
	assert.Equal(t, "ada@example.com", fromRouter.Email)
	assert.Same(t, fromRouter, fromCtx)
}

func TestSessionContext_NoSession(t *testing.T) {
	m := NewManager(new(MockTransport), NewMemoryStore())
	require.NoError(t, m.Restore(context.Background()))

	found := true
	srv := newTestServer(nil)
	srv.Router().Use(SessionContext(m))
	srv.Router().Get("/", func(ctx router.Context) error {
		_, found = UserFromRouter(ctx)
		return ctx.NoContent(http.StatusNoContent)
	})

	_, err := srv.WrappedRouter().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.False(t, found)
}
