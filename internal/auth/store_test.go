package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	tokens, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Tokens{}, tokens)

	require.NoError(t, store.Save(Tokens{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second store instance sees the same tokens, as a later session would.
	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Tokens{AccessToken: "a", RefreshToken: "r"}, loaded)
}

func TestFileStoreRejectsUnknownSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":99}`), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestHTTPRefresher(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expected  Tokens
		expectErr error
		anyErr    bool
	}{
		{
			name:     "camelCase response",
			status:   http.StatusOK,
			body:     `{"accessToken":"a2","refreshToken":"r2"}`,
			expected: Tokens{AccessToken: "a2", RefreshToken: "r2"},
		},
		{
			name:     "snake_case response",
			status:   http.StatusOK,
			body:     `{"access_token":"a3","refresh_token":"r3"}`,
			expected: Tokens{AccessToken: "a3", RefreshToken: "r3"},
		},
		{
			name:      "rejected",
			status:    http.StatusUnauthorized,
			body:      `{"error":"expired"}`,
			expectErr: ErrRefreshRejected,
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `oops`,
			anyErr: true,
		},
		{
			name:   "missing access token",
			status: http.StatusOK,
			body:   `{}`,
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/refresh", r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))
				var req refreshRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "r1", req.RefreshToken)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			tokens, err := NewHTTPRefresher(srv.URL, time.Second).Refresh(context.Background(), "r1")
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expected, tokens)
			}
		})
	}
}

func TestHTTPRefresherWithoutToken(t *testing.T) {
	_, err := NewHTTPRefresher("http://127.0.0.1:1", time.Second).Refresh(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := ExpiresAt(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
	assert.Equal(t, "ana", Subject(token))

	_, ok = ExpiresAt("not-a-jwt")
	assert.False(t, ok)
	_, ok = ExpiresAt("")
	assert.False(t, ok)
}
