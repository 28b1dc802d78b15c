package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/pkg/api"
)

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantErr    bool
		wantStatus int
		wantMsg    string
		statusCode int
	}{
		{
			name:       "success with adminId",
			statusCode: http.StatusOK,
			response:   `{"admin":{"adminId":7,"email":"a@b.c","name":"Ann","role":"admin","createdAt":"2024-05-01T10:00:00"},"accessToken":"acc","refreshToken":"ref"}`,
		},
		{
			name:       "invalid credentials",
			statusCode: http.StatusUnauthorized,
			response:   `{"detail":"Invalid email or password"}`,
			wantErr:    true,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "error payload with message",
			statusCode: http.StatusBadRequest,
			response:   `{"error":"bad_request","message":"email is required"}`,
			wantErr:    true,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/admin/login", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Empty(t, r.Header.Get("Authorization"))

				var req api.LoginRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "a@b.c", req.Email)

				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			resp, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.c", Password: "pw"})

			if tt.wantErr {
				require.Error(t, err)
				var se *ServerError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.wantStatus, se.Status)
				assert.Equal(t, tt.wantMsg, se.Message)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "7", resp.Admin.ID)
			assert.Equal(t, "Ann", resp.Admin.Name)
			assert.Equal(t, "acc", resp.AccessToken)
			assert.Equal(t, "ref", resp.RefreshToken)
			assert.Equal(t, 2024, resp.Admin.CreatedAt.Year())
		})
	}
}

func TestClient_Login_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"admin":{"id":"1"},"accessToken":""}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Login(context.Background(), api.LoginRequest{Email: "a@b.c", Password: "pw"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "accessToken")
}

func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/refresh", r.URL.Path)

		var req api.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.RefreshToken != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid refresh token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"accessToken":"new-access"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	resp, err := client.Refresh(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "new-access", resp.AccessToken)

	_, err = client.Refresh(context.Background(), "bad")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestClient_Logout(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req api.LogoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotToken = req.RefreshToken
		_, _ = w.Write([]byte(`{"message":"Logged out"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second)
	require.NoError(t, client.Logout(context.Background(), "7", "ref"))
	assert.Equal(t, "/admin/logout/7", gotPath)
	assert.Equal(t, "ref", gotToken)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, time.Second)
	_, err := client.Refresh(context.Background(), "x")

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "POST /admin/refresh", ne.Op)
}

func TestNewServerError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "detail string", body: `{"detail":"Thread not found"}`, want: "Thread not found"},
		{name: "detail list", body: `{"detail":[{"msg":"field required"}]}`, want: `[{"msg":"field required"}]`},
		{name: "plain text", body: "upstream timeout\n", want: "upstream timeout"},
		{name: "empty", body: "", want: "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := newServerError(http.StatusBadGateway, []byte(tt.body))
			assert.Equal(t, tt.want, se.Message)
			assert.Equal(t, http.StatusBadGateway, se.Status)
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	inner := context.DeadlineExceeded
	err := error(&NetworkError{Op: "GET /x", Err: inner})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	ve := &ValidationError{Field: "message", Reason: "empty"}
	assert.Equal(t, "invalid message: empty", ve.Error())
}
