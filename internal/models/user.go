package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role роль администратора в системе
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Identity представляет аутентифицированного пользователя на стороне клиента.
// Владелец - CredentialStore, изменяется только при успешном login/refresh.
type Identity struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
}

// identityWire is the shape the backend sends: the id may arrive as "id" or
// "adminId", as a string or a number.
type identityWire struct {
	CreatedAt string          `json:"createdAt"`
	ID        json.RawMessage `json:"id"`
	AdminID   json.RawMessage `json:"adminId"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      Role            `json:"role"`
}

// UnmarshalJSON accepts both client-side and backend identity payloads.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var w identityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	raw := w.ID
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = w.AdminID
	}
	id, err := rawID(raw)
	if err != nil {
		return fmt.Errorf("identity id: %w", err)
	}

	*i = Identity{
		ID:    id,
		Email: w.Email,
		Name:  w.Name,
		Role:  w.Role,
	}
	i.CreatedAt = ParseTimestamp(w.CreatedAt)
	return nil
}

// timestampLayouts - форматы, в которых бэкенд отдает даты (с зоной и без)
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses backend timestamps; it returns the zero time for empty or unrecognized values.
func ParseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// rawID декодирует идентификатор, пришедший строкой или числом
func rawID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unsupported id value %s", string(raw))
	}
	return n.String(), nil
}

// Admin представляет администратора на стороне dev-сервера
type Admin struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt хеш пароля
	Role         Role      `json:"role"`
	ID           int64     `json:"adminId"`
}

// Identity converts the server record into the identity the client stores.
func (a *Admin) Identity() Identity {
	return Identity{
		ID:        strconv.FormatInt(a.ID, 10),
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// RefreshToken представляет refresh token администратора
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
	Token     string    `json:"token"`      // значение токена
	AdminID   int64     `json:"admin_id"`   // ID администратора
}
