package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRefreshRejected is returned when the remote side refuses the refresh token
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrNoRefreshToken is returned when there is no refresh token to exchange
	ErrNoRefreshToken = errors.New("no refresh token")
)

// Refresher exchanges a refresh token for a new token pair
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// HTTPRefresher calls the remote auth/refresh endpoint
type HTTPRefresher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRefresher creates a refresher for the API at baseURL
func NewHTTPRefresher(baseURL string, timeout time.Duration) *HTTPRefresher {
	return &HTTPRefresher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenResponse accepts both naming conventions used by the auth endpoints
type tokenResponse struct {
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	AccessTokenSnake  string `json:"access_token"`
	RefreshTokenSnake string `json:"refresh_token"`
}

func (r tokenResponse) tokens() Tokens {
	t := Tokens{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
	if t.AccessToken == "" {
		t.AccessToken = r.AccessTokenSnake
	}
	if t.RefreshToken == "" {
		t.RefreshToken = r.RefreshTokenSnake
	}
	return t
}

// Refresh performs one refresh call. It never retries.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Tokens{}, ErrNoRefreshToken
	}
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Tokens{}, err
	}
	return postTokens(ctx, r.httpClient, r.baseURL+"/auth/refresh", body)
}

// Login exchanges user credentials for a token pair
func (r *HTTPRefresher) Login(ctx context.Context, username, password string) (Tokens, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return Tokens{}, err
	}
	return postTokens(ctx, r.httpClient, r.baseURL+"/auth/login", body)
}

func postTokens(ctx context.Context, client *http.Client, url string, body []byte) (Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Tokens{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
		return Tokens{}, ErrRefreshRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Tokens{}, fmt.Errorf("token request failed: %s - %s", resp.Status, strings.TrimSpace(string(errorBody)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Tokens{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	tokens := payload.tokens()
	if tokens.AccessToken == "" {
		return Tokens{}, errors.New("token response missing access token")
	}
	return tokens, nil
}
