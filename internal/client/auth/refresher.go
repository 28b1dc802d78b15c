package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/chatdesk/internal/client/metrics"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

// ErrRefreshFailed wraps every refresh failure
var ErrRefreshFailed = errors.New("token refresh failed")

// refreshClient сетевая часть refresh
type refreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.RefreshResponse, error)
}

// Refresher обменивает refresh token на новый access token.
// Один сетевой обмен на вызов, без внутренних повторов. Параллельные
// вызовы с одним и тем же refresh token схлопываются в один обмен.
type Refresher struct {
	client  refreshClient
	store   *CredentialStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewRefresher creates a refresher. m may be nil.
func NewRefresher(client refreshClient, store *CredentialStore, m *metrics.Metrics, logger *slog.Logger) *Refresher {
	return &Refresher{
		client:  client,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Refresh exchanges refreshToken. On success the new access token is written
// to the CredentialStore before it is returned.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
	}

	// обмен не привязан к ctx первого вызвавшего: его отмена не должна
	// проваливать refresh для остальных; время ограничено таймаутом клиента
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(refreshToken, func() (any, error) {
		resp, err := r.client.Refresh(flightCtx, refreshToken)
		if err != nil {
			r.metrics.ObserveRefresh(false)
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		if err := r.store.UpdateAccessToken(flightCtx, refreshToken, resp.AccessToken); err != nil {
			r.metrics.ObserveRefresh(false)
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		r.metrics.ObserveRefresh(true)
		r.logger.Debug("access token refreshed")
		return resp.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			r.logger.Debug("refresh result shared between concurrent callers")
		}
		return res.Val.(string), nil
	}
}
