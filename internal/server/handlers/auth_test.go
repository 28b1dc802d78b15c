package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
	"github.com/iudanet/chatdesk/internal/server/storage/sqlite"
	"github.com/iudanet/chatdesk/pkg/api"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "s3cret-pass"
)

func setupAuth(t *testing.T) (*AuthHandler, *sqlite.Storage) {
	t.Helper()

	s := setupTestStorage(t)
	created, err := EnsureAdmin(context.Background(), s, testEmail, testPassword)
	require.NoError(t, err)
	require.True(t, created)

	return NewAuthHandler(setupTestLogger(), s, s, testJWTConfig()), s
}

func login(t *testing.T, h *AuthHandler) api.LoginResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/admin/login", api.LoginRequest{Email: testEmail, Password: testPassword}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeJSON[api.LoginResponse](t, rec)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	created, err := EnsureAdmin(ctx, s, testEmail, testPassword)
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := s.GetAdminByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)
	assert.NotEqual(t, testPassword, admin.PasswordHash)

	// повторный вызов ничего не меняет
	created, err = EnsureAdmin(ctx, s, testEmail, "other")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAuthHandler_Login(t *testing.T) {
	h, _ := setupAuth(t)

	resp := login(t, h)
	require.NoError(t, resp.Validate())
	assert.Equal(t, testEmail, resp.Admin.Email)

	claims, err := ValidateAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Admin.ID, claims.Subject)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestAuthHandler_LoginErrors(t *testing.T) {
	h, _ := setupAuth(t)

	tests := []struct {
		name       string
		body       api.LoginRequest
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "wrong password",
			body:       api.LoginRequest{Email: testEmail, Password: "nope"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid credentials",
		},
		{
			name:       "unknown email",
			body:       api.LoginRequest{Email: "ghost@example.com", Password: testPassword},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid credentials",
		},
		{
			name:       "invalid email",
			body:       api.LoginRequest{Email: "not-an-email", Password: testPassword},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty password",
			body:       api.LoginRequest{Email: testEmail},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "password cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, jsonRequest(t, http.MethodPost, "/admin/login", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeJSON[api.ErrorResponse](t, rec)
			assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Message)
			}
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	h, _ := setupAuth(t)
	session := login(t, h)

	rec := httptest.NewRecorder()
	h.Refresh(rec, jsonRequest(t, http.MethodPost, "/admin/refresh", api.RefreshRequest{RefreshToken: session.RefreshToken}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeJSON[api.RefreshResponse](t, rec)
	_, err := ValidateAccessToken(testJWTConfig(), resp.AccessToken)
	assert.NoError(t, err)

	// токен не ротируется и работает повторно
	rec = httptest.NewRecorder()
	h.Refresh(rec, jsonRequest(t, http.MethodPost, "/admin/refresh", api.RefreshRequest{RefreshToken: session.RefreshToken}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_RefreshErrors(t *testing.T) {
	ctx := context.Background()
	h, s := setupAuth(t)
	session := login(t, h)

	admin, err := s.GetAdminByEmail(ctx, testEmail)
	require.NoError(t, err)
	require.NoError(t, s.SaveRefreshToken(ctx, &models.RefreshToken{
		Token:     "expired-token",
		AdminID:   admin.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-time.Hour),
	}))

	t.Run("unknown token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Refresh(rec, jsonRequest(t, http.MethodPost, "/admin/refresh", api.RefreshRequest{RefreshToken: "bogus"}))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Invalid refresh token", decodeJSON[api.ErrorResponse](t, rec).Message)
	})

	t.Run("expired token is removed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Refresh(rec, jsonRequest(t, http.MethodPost, "/admin/refresh", api.RefreshRequest{RefreshToken: "expired-token"}))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		_, err := s.GetRefreshToken(ctx, "expired-token")
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	})

	t.Run("empty token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Refresh(rec, jsonRequest(t, http.MethodPost, "/admin/refresh", api.RefreshRequest{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// рабочая сессия не задета
	_, err = s.GetRefreshToken(ctx, session.RefreshToken)
	assert.NoError(t, err)
}

func logoutRequest(t *testing.T, adminID string, body any) *http.Request {
	t.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(http.MethodPost, "/admin/logout/"+adminID, nil)
	} else {
		req = jsonRequest(t, http.MethodPost, "/admin/logout/"+adminID, body)
	}
	req.SetPathValue("adminId", adminID)
	return req
}

func TestAuthHandler_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("with refresh token deletes only it", func(t *testing.T) {
		h, s := setupAuth(t)
		first := login(t, h)
		second := login(t, h)

		rec := httptest.NewRecorder()
		h.Logout(rec, logoutRequest(t, first.Admin.ID, api.LogoutRequest{RefreshToken: first.RefreshToken}))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logged out successfully", decodeJSON[api.MessageResponse](t, rec).Message)

		_, err := s.GetRefreshToken(ctx, first.RefreshToken)
		assert.ErrorIs(t, err, storage.ErrTokenNotFound)
		_, err = s.GetRefreshToken(ctx, second.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("without body deletes all admin tokens", func(t *testing.T) {
		h, s := setupAuth(t)
		first := login(t, h)
		second := login(t, h)

		rec := httptest.NewRecorder()
		h.Logout(rec, logoutRequest(t, first.Admin.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		for _, tok := range []string{first.RefreshToken, second.RefreshToken} {
			_, err := s.GetRefreshToken(ctx, tok)
			assert.ErrorIs(t, err, storage.ErrTokenNotFound)
		}
	})

	t.Run("unknown token is not an error", func(t *testing.T) {
		h, _ := setupAuth(t)
		session := login(t, h)

		rec := httptest.NewRecorder()
		h.Logout(rec, logoutRequest(t, session.Admin.ID, api.LogoutRequest{RefreshToken: "gone"}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("foreign token is rejected", func(t *testing.T) {
		h, s := setupAuth(t)
		session := login(t, h)

		other := &models.Admin{Name: "Other", Email: "other@example.com", PasswordHash: "x", Role: models.RoleAdmin}
		require.NoError(t, s.CreateAdmin(ctx, other))

		rec := httptest.NewRecorder()
		h.Logout(rec, logoutRequest(t, strconv.FormatInt(other.ID, 10), api.LogoutRequest{RefreshToken: session.RefreshToken}))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		_, err := s.GetRefreshToken(ctx, session.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("bad admin id", func(t *testing.T) {
		h, _ := setupAuth(t)

		rec := httptest.NewRecorder()
		h.Logout(rec, logoutRequest(t, "abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
