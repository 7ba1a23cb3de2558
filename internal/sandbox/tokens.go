package sandbox

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "import-wizard-sandbox"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// TokenPair is an access token with the refresh token that replaces it
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type refreshGrant struct {
	subject string
	expires time.Time
}

// IssuerConfig configures an Issuer
type IssuerConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Users maps usernames to passwords accepted by Login
	Users map[string]string
	Now   func() time.Time
}

// Issuer signs short-lived HS256 access tokens and hands out single-use
// refresh tokens. Every refresh rotates both tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      map[string]string
	now        func() time.Time

	mu     sync.Mutex
	grants map[string]refreshGrant
}

// NewIssuer creates a token issuer
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		users:      cfg.Users,
		now:        cfg.Now,
		grants:     make(map[string]refreshGrant),
	}, nil
}

// Login checks a username and password and issues a token pair
func (i *Issuer) Login(username, password string) (TokenPair, error) {
	expected, ok := i.users[username]
	if !ok || subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return TokenPair{}, ErrInvalidCredentials
	}
	return i.Issue(username)
}

// Issue creates a token pair for subject
func (i *Issuer) Issue(subject string) (TokenPair, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := uuid.NewString()
	i.mu.Lock()
	i.sweepLocked(now)
	i.grants[refresh] = refreshGrant{subject: subject, expires: now.Add(i.refreshTTL)}
	i.mu.Unlock()

	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: i.accessTTL}, nil
}

// sweepLocked drops grants that expired unredeemed. i.mu must be held.
func (i *Issuer) sweepLocked(now time.Time) {
	for token, grant := range i.grants {
		if !now.Before(grant.expires) {
			delete(i.grants, token)
		}
	}
}

// Outstanding returns the number of refresh tokens that can still be redeemed
// or have not been swept yet
func (i *Issuer) Outstanding() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.grants)
}

// Rotate redeems a refresh token for a new pair. A refresh token can be
// redeemed once.
func (i *Issuer) Rotate(refreshToken string) (TokenPair, error) {
	i.mu.Lock()
	grant, ok := i.grants[refreshToken]
	delete(i.grants, refreshToken)
	i.mu.Unlock()

	if !ok || !i.now().Before(grant.expires) {
		return TokenPair{}, ErrInvalidToken
	}
	return i.Issue(grant.subject)
}

// Revoke invalidates every outstanding refresh token of subject
func (i *Issuer) Revoke(subject string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for token, grant := range i.grants {
		if grant.subject == subject {
			delete(i.grants, token)
		}
	}
}

// Verify validates an access token and returns its subject
func (i *Issuer) Verify(accessToken string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}
