package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/chatdesk/internal/client/storage"
	"github.com/iudanet/chatdesk/internal/crypto"
	"github.com/iudanet/chatdesk/internal/models"
)

var (
	// ErrNotSignedIn returned when an operation needs stored credentials
	ErrNotSignedIn = errors.New("not signed in")

	// ErrCredentialsChanged означает, что пока шел refresh, пользователь
	// вышел или вошел заново; новый токен к текущей сессии не относится
	ErrCredentialsChanged = errors.New("credentials changed during refresh")

	// ErrSealedCredentials stored tokens are sealed but no passphrase was given
	ErrSealedCredentials = errors.New("stored credentials are sealed, passphrase required")
)

// Session то, что возвращает Load при старте: личность и access token.
// С сервером не сверяется.
type Session struct {
	Identity    models.Identity
	AccessToken string
}

// credentials полный набор полей, который меняется только целиком
type credentials struct {
	identity     models.Identity
	accessToken  string
	refreshToken string
}

// CredentialStore единственный владелец пары токенов и личности пользователя.
// Держит копию в памяти для point-in-time чтений и записывает все поля
// одной записью в storage.AuthStorage, так что частично обновленное
// состояние не видно ни в памяти, ни на диске.
type CredentialStore struct {
	storage storage.AuthStorage
	sealer  *crypto.Sealer
	logger  *slog.Logger
	current *credentials
	now     func() time.Time
	mu      sync.RWMutex
}

// NewCredentialStore создает хранилище. sealer может быть nil:
// тогда токены хранятся как есть.
func NewCredentialStore(st storage.AuthStorage, sealer *crypto.Sealer, logger *slog.Logger) *CredentialStore {
	return &CredentialStore{
		storage: st,
		sealer:  sealer,
		logger:  logger,
		now:     time.Now,
	}
}

// OpenSealer derives the token sealing key from passphrase and the
// per-database salt. An empty passphrase means no sealing (nil, nil).
func OpenSealer(ctx context.Context, meta storage.MetadataStorage, passphrase string) (*crypto.Sealer, error) {
	if passphrase == "" {
		return nil, nil
	}

	salt, err := meta.GetOrCreateSalt(ctx)
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveStorageKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive storage key: %w", err)
	}

	return crypto.NewSealer(key)
}

// Load reads the persisted session into memory. It returns nil when nobody
// is signed in.
func (s *CredentialStore) Load(ctx context.Context) (*Session, error) {
	stored, err := s.storage.GetAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	creds, err := s.open(stored)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = creds
	s.mu.Unlock()

	return &Session{Identity: creds.identity, AccessToken: creds.accessToken}, nil
}

// Save replaces identity and both tokens at once.
func (s *CredentialStore) Save(ctx context.Context, identity models.Identity, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		return fmt.Errorf("both tokens are required")
	}

	creds := &credentials{identity: identity, accessToken: accessToken, refreshToken: refreshToken}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, creds); err != nil {
		return err
	}
	s.current = creds
	return nil
}

// UpdateAccessToken stores a token obtained by refreshing refreshToken.
// If the stored refresh token is no longer refreshToken (sign-out or a new
// sign-in happened meanwhile) nothing is written and ErrCredentialsChanged
// is returned.
func (s *CredentialStore) UpdateAccessToken(ctx context.Context, refreshToken, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("access token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.refreshToken != refreshToken {
		return ErrCredentialsChanged
	}

	next := *s.current
	next.accessToken = accessToken
	if err := s.persist(ctx, &next); err != nil {
		return err
	}
	s.current = &next
	return nil
}

// Clear removes everything. Память очищается первой: даже если удаление
// на диске не удалось, устаревший токен больше не будет прочитан.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.storage.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// CurrentAccessToken returns the access token, false when signed out.
func (s *CredentialStore) CurrentAccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", false
	}
	return s.current.accessToken, true
}

// CurrentRefreshToken returns the refresh token, false when signed out.
func (s *CredentialStore) CurrentRefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", false
	}
	return s.current.refreshToken, true
}

// Identity возвращает текущего пользователя
func (s *CredentialStore) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return models.Identity{}, false
	}
	return s.current.identity, true
}

// persist пишет запись в storage; вызывается под s.mu
func (s *CredentialStore) persist(ctx context.Context, creds *credentials) error {
	record := &storage.AuthData{
		Identity:     creds.identity,
		AccessToken:  creds.accessToken,
		RefreshToken: creds.refreshToken,
		SavedAt:      s.now().Unix(),
	}

	if s.sealer != nil {
		access, err := s.sealer.Seal(creds.accessToken)
		if err != nil {
			return fmt.Errorf("failed to seal access token: %w", err)
		}
		refresh, err := s.sealer.Seal(creds.refreshToken)
		if err != nil {
			return fmt.Errorf("failed to seal refresh token: %w", err)
		}
		record.AccessToken = access
		record.RefreshToken = refresh
		record.Sealed = true
	}

	if err := s.storage.SaveAuth(ctx, record); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// open превращает запись из storage в credentials, расшифровывая токены
func (s *CredentialStore) open(stored *storage.AuthData) (*credentials, error) {
	creds := &credentials{
		identity:     stored.Identity,
		accessToken:  stored.AccessToken,
		refreshToken: stored.RefreshToken,
	}

	if stored.Sealed {
		if s.sealer == nil {
			return nil, ErrSealedCredentials
		}
		access, err := s.sealer.Open(stored.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to open access token: %w", err)
		}
		refresh, err := s.sealer.Open(stored.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to open refresh token: %w", err)
		}
		creds.accessToken = access
		creds.refreshToken = refresh
	} else if s.sealer != nil {
		s.logger.Info("stored credentials are not sealed, they will be sealed on next save")
	}

	if creds.accessToken == "" || creds.refreshToken == "" {
		return nil, fmt.Errorf("stored credentials are incomplete")
	}
	return creds, nil
}
