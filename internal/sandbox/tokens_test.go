package sandbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-wizard/internal/auth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestIssuer(t *testing.T, clock *fakeClock) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(IssuerConfig{
		Secret:    "test-secret",
		AccessTTL: time.Minute,
		Users:     map[string]string{"ana": "kolač"},
		Now:       clock.Now,
	})
	require.NoError(t, err)
	return issuer
}

func TestIssuerLoginAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)

	pair, err := issuer.Login("ana", "kolač")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, pair.ExpiresIn)

	subject, err := issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ana", subject)
	assert.Equal(t, "ana", auth.Subject(pair.AccessToken))

	_, err = issuer.Login("ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = issuer.Login("nobody", "kolač")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssuerAccessTokenExpires(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	pair, err := issuer.Issue("ana")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = issuer.Verify(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRejectsForeignSignature(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	other, err := NewIssuer(IssuerConfig{Secret: "other-secret", Now: clock.Now})
	require.NoError(t, err)
	pair, err := other.Issue("ana")
	require.NoError(t, err)

	_, err = newTestIssuer(t, clock).Verify(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRotateIsSingleUse(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	first, err := issuer.Issue("ana")
	require.NoError(t, err)

	second, err := issuer.Rotate(first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = issuer.Rotate(first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRevoke(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	pair, err := issuer.Issue("ana")
	require.NoError(t, err)

	issuer.Revoke("ana")

	_, err = issuer.Rotate(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{})
	assert.Error(t, err)
}

func TestIssuerSweepsExpiredGrants(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	for i := 0; i < 3; i++ {
		_, err := issuer.Issue("ana")
		require.NoError(t, err)
	}
	require.Equal(t, 3, issuer.Outstanding())

	clock.Advance(25 * time.Hour)
	fresh, err := issuer.Issue("ana")
	require.NoError(t, err)

	assert.Equal(t, 1, issuer.Outstanding())
	_, err = issuer.Rotate(fresh.RefreshToken)
	assert.NoError(t, err)
}
