package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ze-club/models"
	"ze-club/services"
)

// stubVerifier accepts "good-<id>" tokens.
type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*services.Identity, error) {
	if len(token) > 5 && token[:5] == "good-" {
		id := token[5:]
		var roles []string
		if id == "admin" {
			roles = []string{"admin"}
		}
		return &services.Identity{MemberID: id, Email: id + "@ze.gg", Roles: roles}, nil
	}
	return nil, services.ErrInvalidSession
}

func newMembers(t *testing.T) *services.MemberService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Member{}))
	return services.NewMemberService(db, zap.NewNop())
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			return c.SendStatus(fiber.StatusUnauthorized)
		case errors.Is(err, services.ErrForbidden):
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}})
}

func get(t *testing.T, app *fiber.App, target, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestBearerToken(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(bearerToken(c)) })

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		_, body := get(t, app, "/", tt.header)
		assert.Equal(t, tt.want, body, "header %q", tt.header)
	}
}

func TestSession(t *testing.T) {
	members := newMembers(t)
	app := newApp()
	app.Get("/me", Session(stubVerifier{}, members), func(c *fiber.Ctx) error {
		return c.SendString(MemberID(c))
	})

	code, _ := get(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = get(t, app, "/me", "Bearer bad")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body := get(t, app, "/me", "Bearer good-kai")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "kai", body)

	require.NoError(t, members.DB.Model(&models.Member{}).Where("id = ?", "kai").Update("is_banned", true).Error)
	code, _ = get(t, app, "/me", "Bearer good-kai")
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestOptionalSession(t *testing.T) {
	members := newMembers(t)
	app := newApp()
	app.Get("/rewards", OptionalSession(stubVerifier{}, members), func(c *fiber.Ctx) error {
		return c.SendString("viewer=" + MemberID(c))
	})

	code, body := get(t, app, "/rewards", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "viewer=", body)

	code, body = get(t, app, "/rewards", "Bearer good-ana")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "viewer=ana", body)

	code, _ = get(t, app, "/rewards", "Bearer bad")
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestRequireAdmin(t *testing.T) {
	members := newMembers(t)
	app := newApp()
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/bare", RequireAdmin(), ok)
	app.Get("/admin", Session(stubVerifier{}, members), RequireAdmin(), ok)

	code, _ := get(t, app, "/bare", "")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = get(t, app, "/admin", "Bearer good-kai")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, _ = get(t, app, "/admin", "Bearer good-admin")
	assert.Equal(t, fiber.StatusOK, code)
}

func TestSSEAuth(t *testing.T) {
	members := newMembers(t)
	app := newApp()
	app.Get("/stream", SSEAuth(stubVerifier{}, members), func(c *fiber.Ctx) error {
		return c.SendString(MemberID(c))
	})

	code, _ := get(t, app, "/stream", "")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body := get(t, app, "/stream?token=good-jo", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "jo", body)

	code, body = get(t, app, "/stream", "Bearer good-lee")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "lee", body)
}
