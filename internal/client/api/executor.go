package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/chatdesk/internal/client/metrics"
)

// expirySkew - access token, истекающий в пределах этого окна, считаем уже истекшим
const expirySkew = 5 * time.Second

// CredentialSource point-in-time reads of the stored credentials.
type CredentialSource interface {
	CurrentAccessToken() (string, bool)
	CurrentRefreshToken() (string, bool)
}

// TokenRefresher exchanges a refresh token for a new access token and
// stores it before returning.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Request одна логическая операция к серверу.
// Body хранится байтами, чтобы запрос можно было повторить после refresh.
type Request struct {
	Query       url.Values
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// Response успешный (2xx) ответ с прочитанным телом
type Response struct {
	Header http.Header
	Body   []byte
	Status int
}

// Executor выполняет аутентифицированные запросы и прячет от вызывающего
// истечение access token: один refresh и один повтор, не больше.
type Executor struct {
	client    *Client
	creds     CredentialSource
	refresher TokenRefresher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewExecutor создает executor. m может быть nil.
func NewExecutor(client *Client, creds CredentialSource, refresher TokenRefresher, m *metrics.Metrics, logger *slog.Logger) *Executor {
	return &Executor{
		client:    client,
		creds:     creds,
		refresher: refresher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute sends req with the current access token. On 401 it refreshes once
// and retries once; a second 401 is returned as a ServerError.
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	op := req.Method + " " + req.Path

	token, ok := e.creds.CurrentAccessToken()
	if !ok {
		// после logout не отправляем ничего, даже старый токен
		return nil, fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}

	resp, err := e.send(ctx, e.client.httpClient, req, token)
	if err != nil {
		e.metrics.ObserveRequest(0)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		e.logger.Debug("access token rejected, refreshing", "op", op)

		newToken, err := e.refresh(ctx)
		if err != nil {
			e.metrics.ObserveRequest(http.StatusUnauthorized)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		resp, err = e.send(ctx, e.client.httpClient, req, newToken)
		if err != nil {
			e.metrics.ObserveRequest(0)
			return nil, err
		}
	}

	return e.finish(op, resp)
}

// DoJSON is Execute for JSON endpoints: in is marshalled when not nil and a
// 2xx body is decoded into out when out is not nil.
func (e *Executor) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := Request{Method: method, Path: path, Query: query}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = body
		req.ContentType = "application/json"
	}

	resp, err := e.Execute(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(resp.Body, out, path)
}

// OpenStream POSTs in to path and returns the response body for incremental
// reading. The request is sent exactly once: an access token that is already
// expired is refreshed before sending, and a 401 refreshes credentials for
// the next call without resending this one. The caller closes the body.
func (e *Executor) OpenStream(ctx context.Context, path string, in any) (io.ReadCloser, error) {
	op := http.MethodPost + " " + path

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req := Request{Method: http.MethodPost, Path: path, Body: body, ContentType: "application/json"}

	token, ok := e.creds.CurrentAccessToken()
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}

	if e.expired(token) {
		e.logger.Debug("access token expired before stream, refreshing", "op", op)
		if token, err = e.refresh(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	resp, err := e.send(ctx, e.client.streamClient, req, token)
	if err != nil {
		e.metrics.ObserveRequest(0)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		e.metrics.ObserveRequest(http.StatusUnauthorized)
		// отправка неидемпотентна: обновляем токен, но не повторяем
		if _, err := e.refresh(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, &ServerError{
			Status:  http.StatusUnauthorized,
			Message: "access token was rejected; credentials refreshed, message not resent",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer drain(resp)
		e.metrics.ObserveRequest(resp.StatusCode)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newServerError(resp.StatusCode, respBody)
	}

	e.metrics.ObserveRequest(resp.StatusCode)
	return resp.Body, nil
}

// refresh reads the current refresh token and exchanges it.
// A rejected refresh is ErrAuthExpired; transport failures and cancellation
// are returned as they are, so the stored session survives an outage.
func (e *Executor) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := e.creds.CurrentRefreshToken()
	if !ok {
		return "", ErrAuthExpired
	}

	token, err := e.refresher.Refresh(ctx, refreshToken)
	if err == nil {
		return token, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		e.logger.Warn("token refresh unreachable, session kept", "error", err)
		return "", netErr
	}

	e.logger.Warn("token refresh failed", "error", err)
	return "", fmt.Errorf("%w: %w", ErrAuthExpired, err)
}

// expired reads exp from a JWT access token without verifying it.
// Opaque tokens are never considered expired.
func (e *Executor) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(e.now().Add(expirySkew))
}

// send выполняет один HTTP запрос с bearer токеном
func (e *Executor) send(ctx context.Context, hc *http.Client, req Request, token string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, e.client.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: req.Method + " " + req.Path, Err: err}
	}
	return resp, nil
}

// finish читает тело и превращает не-2xx статус в ServerError
func (e *Executor) finish(op string, resp *http.Response) (*Response, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.metrics.ObserveRequest(0)
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	e.metrics.ObserveRequest(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newServerError(resp.StatusCode, body)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// drain дочитывает и закрывает тело, чтобы соединение вернулось в пул
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
