package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/validation"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

// authClient сетевые операции входа и выхода
type authClient interface {
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.LoginResponse, error)
	Logout(ctx context.Context, adminID, refreshToken string) error
}

// Service предоставляет функции авторизации
type Service struct {
	client authClient
	store  *CredentialStore
	logger *slog.Logger
}

// NewService создает новый сервис авторизации
func NewService(client authClient, store *CredentialStore, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Login выполняет вход и атомарно сохраняет личность и оба токена.
// Ошибка сервера возвращается с его сообщением (api.ServerError).
func (s *Service) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, &api.ValidationError{Field: "email", Reason: err.Error(), Err: err}
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, &api.ValidationError{Field: "password", Reason: err.Error(), Err: err}
	}

	resp, err := s.client.Login(ctx, pkgapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := s.store.Save(ctx, resp.Admin, resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	s.logger.Info("signed in", "admin_id", resp.Admin.ID, "role", resp.Admin.Role)
	identity := resp.Admin
	return &identity, nil
}

// Logout выполняет выход из системы.
// Уведомление сервера best-effort: ошибки логируются, локальные данные
// удаляются в любом случае.
func (s *Service) Logout(ctx context.Context) error {
	identity, signedIn := s.store.Identity()
	refreshToken, _ := s.store.CurrentRefreshToken()

	if signedIn {
		if err := s.client.Logout(ctx, identity.ID, refreshToken); err != nil {
			s.logger.Warn("failed to logout on server", "admin_id", identity.ID, "error", err)
		}
	} else {
		s.logger.Debug("no credentials found during logout")
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	s.logger.Info("signed out")
	return nil
}

// Expiry reads the exp claim of an access token without verifying it.
// ok is false for opaque tokens and tokens without exp.
func Expiry(accessToken string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
