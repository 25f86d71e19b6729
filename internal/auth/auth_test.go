package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/repository/memory"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, exp, err := tm.GenerateToken("user-1", "dana@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "dana@example.com", claims.Email)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", time.Hour).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken("user-1", "")
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ParseToken(unsigned)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestAuthMiddleware(t *testing.T) {
	store := memory.NewStore()
	user := &domain.User{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, store.Repositories().Users.Create(context.Background(), user))

	tm := NewTokenManager("secret", time.Hour)
	mw := NewAuthMiddleware(tm, store)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		return c.SendString(p.UserID())
	})

	valid, _, err := tm.GenerateToken(user.ID, user.Email)
	require.NoError(t, err)
	ghost, _, err := tm.GenerateToken("missing-user", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer abc", fiber.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost, fiber.StatusUnauthorized},
		{"valid", "Bearer " + valid, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
