package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iudanet/chatdesk/pkg/api"
)

// DefaultTimeout для обычных запросов. На тело стрима не распространяется.
const DefaultTimeout = 30 * time.Second

// Client представляет HTTP клиент для взаимодействия с сервером.
// Сам по себе не аутентифицирует запросы: это делает Executor.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// ждем заголовки ответа не дольше timeout, даже для стрима
	transport.ResponseHeaderTimeout = timeout

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		// Ограничиваем количество редиректов
		if len(via) >= 10 {
			return fmt.Errorf("stopped after 10 redirects")
		}
		// Копируем заголовки Authorization при редиректе
		if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
			req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
		}
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:       timeout,
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		// без общего Timeout: тело ответа читается столько, сколько идет генерация
		streamClient: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login выполняет аутентификацию администратора
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	var resp api.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/login", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("login request failed: %w", malformed("login response", err))
	}
	return &resp, nil
}

// Refresh обменивает refresh token на новый access token.
// Один сетевой обмен, без повторов.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*api.RefreshResponse, error) {
	var resp api.RefreshResponse
	req := api.RefreshRequest{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/refresh", req, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", malformed("refresh response", err))
	}
	return &resp, nil
}

// Logout отзывает refresh token на сервере
func (c *Client) Logout(ctx context.Context, adminID, refreshToken string) error {
	path := "/admin/logout/" + url.PathEscape(adminID)
	req := api.LogoutRequest{RefreshToken: refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, path, req, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// url собирает абсолютный адрес запроса
func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON выполняет неаутентифицированный JSON запрос
func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, nil), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newServerError(resp.StatusCode, respBody)
	}

	return decodeJSON(respBody, result, path)
}

// decodeJSON декодирует успешный ответ; пустой result означает "тело не нужно"
func decodeJSON(body []byte, result any, what string) error {
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return malformed(what+" response", err)
	}
	return nil
}
