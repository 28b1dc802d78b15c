package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/iudanet/chatdesk/internal/models"
)

// LoginRequest представляет запрос на аутентификацию администратора
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse представляет ответ POST /admin/login
type LoginResponse struct {
	Admin        models.Identity `json:"admin"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

// Validate checks the documented fields of a login response.
func (r *LoginResponse) Validate() error {
	switch {
	case r.AccessToken == "":
		return errors.New("accessToken is missing")
	case r.RefreshToken == "":
		return errors.New("refreshToken is missing")
	case r.Admin.ID == "":
		return errors.New("admin id is missing")
	}
	return nil
}

// RefreshRequest представляет запрос POST /admin/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse представляет ответ с новым access token
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Validate checks that a new access token was issued.
func (r *RefreshResponse) Validate() error {
	if r.AccessToken == "" {
		return errors.New("accessToken is missing")
	}
	return nil
}

// LogoutRequest представляет запрос POST /admin/logout/{adminId}
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ErrorResponse представляет ответ с ошибкой.
// Бэкенд отдает либо {"detail": ...}, либо {"error": ..., "message": ...}.
type ErrorResponse struct {
	Error   string          `json:"error,omitempty"`   // описание ошибки
	Message string          `json:"message,omitempty"` // дополнительное сообщение
	Detail  json.RawMessage `json:"detail,omitempty"`  // FastAPI-style detail (строка или список)
}

// Text returns the most specific human-readable message in the payload.
func (e *ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(e.Detail))
	}
	return e.Error
}

// MessageResponse представляет простой ответ {"message": ...}
type MessageResponse struct {
	Message string `json:"message"`
}
