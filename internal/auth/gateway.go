// Package auth holds the process-wide access/refresh token pair and serialises
// token refresh.
package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Gateway owns the credentials used by the API client. Concurrent refresh
// requests share a single in-flight exchange so a rotating refresh token is
// never spent twice.
type Gateway struct {
	mu        sync.RWMutex
	tokens    Tokens
	store     TokenStore
	refresher Refresher
	group     singleflight.Group
	logger    *zerolog.Logger
}

// NewGateway loads persisted tokens from store and returns a gateway.
// A nil store keeps tokens in memory only.
func NewGateway(store TokenStore, refresher Refresher, logger *zerolog.Logger) (*Gateway, error) {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	g := &Gateway{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
	if store != nil {
		tokens, err := store.Load()
		if err != nil {
			return nil, err
		}
		g.tokens = tokens
	}
	return g, nil
}

// CurrentToken returns the access token, or "" when none is held
func (g *Gateway) CurrentToken() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens.AccessToken
}

// Tokens returns a copy of the held token pair
func (g *Gateway) Tokens() Tokens {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens
}

// SetTokens replaces both tokens, e.g. after login, and persists them
func (g *Gateway) SetTokens(tokens Tokens) error {
	g.mu.Lock()
	g.tokens = tokens
	g.mu.Unlock()

	if g.store != nil {
		return g.store.Save(tokens)
	}
	return nil
}

// Refresh exchanges the refresh token for a new pair and returns the new
// access token. rejected is the access token the caller saw fail; if another
// caller has already replaced it, the current token is returned without a
// network call. On any failure the held tokens are left untouched and ok is
// false. Refresh never retries.
func (g *Gateway) Refresh(ctx context.Context, rejected string) (token string, ok bool) {
	g.mu.RLock()
	current := g.tokens
	g.mu.RUnlock()

	if current.AccessToken != "" && current.AccessToken != rejected {
		return current.AccessToken, true
	}
	if current.RefreshToken == "" || g.refresher == nil {
		g.logger.Debug().Msg("No refresh token available")
		return "", false
	}

	// The exchange runs on a context detached from any single caller so that
	// one caller giving up does not fail the others sharing the flight.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := g.group.Do("refresh", func() (any, error) {
		return g.exchange(flightCtx, rejected)
	})
	if err != nil {
		g.logger.Warn().Err(err).Bool("shared", shared).Msg("Token refresh failed")
		return "", false
	}
	return v.(string), true
}

// exchange runs inside the shared flight. A flight that finished between the
// caller's check and this one may already have replaced the rejected token.
func (g *Gateway) exchange(ctx context.Context, rejected string) (string, error) {
	g.mu.RLock()
	current := g.tokens
	g.mu.RUnlock()

	if current.AccessToken != "" && current.AccessToken != rejected {
		return current.AccessToken, nil
	}
	refreshToken := current.RefreshToken

	next, err := g.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}

	g.mu.Lock()
	g.tokens = next
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Save(next); err != nil {
			// The in-memory pair stays valid for this process.
			g.logger.Warn().Err(err).Msg("Failed to persist refreshed tokens")
		}
	}

	if exp, ok := ExpiresAt(next.AccessToken); ok {
		g.logger.Info().Time("expires_at", exp).Msg("Access token refreshed")
	} else {
		g.logger.Info().Msg("Access token refreshed")
	}
	return next.AccessToken, nil
}
