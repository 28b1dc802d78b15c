package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
	"github.com/iudanet/chatdesk/internal/validation"
	"github.com/iudanet/chatdesk/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации администраторов
type AuthHandler struct {
	responder
	adminStorage storage.AdminStorage
	tokenStorage storage.TokenStorage
	jwtConfig    JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, adminStorage storage.AdminStorage, tokenStorage storage.TokenStorage, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		responder:    responder{logger: logger},
		adminStorage: adminStorage,
		tokenStorage: tokenStorage,
		jwtConfig:    jwtConfig,
	}
}

// Login обрабатывает POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	admin, err := h.adminStorage.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			h.logger.WarnContext(ctx, "login failed: admin not found", slog.String("email", req.Email))
			h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get admin", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.WarnContext(ctx, "login failed: wrong password", slog.Int64("admin_id", admin.ID))
		h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := GenerateAccessToken(h.jwtConfig, admin)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	refreshToken, expiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token := &models.RefreshToken{
		Token:     refreshToken,
		AdminID:   admin.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := h.tokenStorage.SaveRefreshToken(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "failed to save refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "admin logged in", slog.Int64("admin_id", admin.ID))

	h.sendJSON(w, api.LoginResponse{
		Admin:        admin.Identity(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, http.StatusOK)
}

// Refresh обрабатывает POST /admin/refresh.
// Refresh token не ротируется: клиент получает только новый access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		h.sendError(w, "refreshToken is required", http.StatusBadRequest)
		return
	}

	stored, err := h.tokenStorage.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			h.sendError(w, "Invalid refresh token", http.StatusForbidden)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.Int64("admin_id", stored.AdminID))
		if err := h.tokenStorage.DeleteRefreshToken(ctx, stored.Token); err != nil {
			h.logger.WarnContext(ctx, "failed to delete expired refresh token", slog.Any("error", err))
		}
		h.sendError(w, "Refresh token expired", http.StatusForbidden)
		return
	}

	admin, err := h.adminStorage.GetAdminByID(ctx, stored.AdminID)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			h.sendError(w, "Invalid refresh token", http.StatusForbidden)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get admin", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	accessToken, err := GenerateAccessToken(h.jwtConfig, admin)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "access token refreshed", slog.Int64("admin_id", admin.ID))

	h.sendJSON(w, api.RefreshResponse{AccessToken: accessToken}, http.StatusOK)
}

// Logout обрабатывает POST /admin/logout/{adminId}.
// С refreshToken в теле удаляется только он, без тела - все токены администратора.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID, err := strconv.ParseInt(r.PathValue("adminId"), 10, 64)
	if err != nil || adminID <= 0 {
		h.sendError(w, "invalid admin id", http.StatusBadRequest)
		return
	}

	var req api.LogoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	if req.RefreshToken == "" {
		deleted, err := h.tokenStorage.DeleteAdminTokens(ctx, adminID)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to delete admin tokens", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		h.logger.InfoContext(ctx, "admin logged out",
			slog.Int64("admin_id", adminID),
			slog.Int("tokens_deleted", deleted))
		h.sendJSON(w, api.MessageResponse{Message: "Logged out successfully"}, http.StatusOK)
		return
	}

	stored, err := h.tokenStorage.GetRefreshToken(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, storage.ErrTokenNotFound):
		// уже вышел
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	case stored.AdminID != adminID:
		h.logger.WarnContext(ctx, "logout with foreign refresh token", slog.Int64("admin_id", adminID))
		h.sendError(w, "Invalid refresh token", http.StatusForbidden)
		return
	default:
		if err := h.tokenStorage.DeleteRefreshToken(ctx, stored.Token); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.ErrorContext(ctx, "failed to delete refresh token", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.logger.InfoContext(ctx, "admin logged out", slog.Int64("admin_id", adminID))
	h.sendJSON(w, api.MessageResponse{Message: "Logged out successfully"}, http.StatusOK)
}

// EnsureAdmin создает администратора с указанным email, если его еще нет.
// Возвращает true, если запись была создана.
func EnsureAdmin(ctx context.Context, admins storage.AdminStorage, email, password string) (bool, error) {
	_, err := admins.GetAdminByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrAdminNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
	}
	if err := admins.CreateAdmin(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
