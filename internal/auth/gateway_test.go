package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	next    Tokens
	err     error
	seen    []string
	mu      sync.Mutex
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return Tokens{}, f.err
	}
	return f.next, nil
}

type memoryStore struct {
	tokens Tokens
	saves  int
	err    error
}

func (m *memoryStore) Load() (Tokens, error) { return m.tokens, nil }

func (m *memoryStore) Save(t Tokens) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.tokens = t
	return nil
}

func TestGatewayLoadsPersistedTokens(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	gw, err := NewGateway(store, &fakeRefresher{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "a1", gw.CurrentToken())
}

func TestGatewayRefreshOverwritesBothTokens(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	refresher := &fakeRefresher{next: Tokens{AccessToken: "a2", RefreshToken: "r2"}}
	gw, err := NewGateway(store, refresher, nil)
	require.NoError(t, err)

	token, ok := gw.Refresh(context.Background(), "a1")

	require.True(t, ok)
	assert.Equal(t, "a2", token)
	assert.Equal(t, Tokens{AccessToken: "a2", RefreshToken: "r2"}, gw.Tokens())
	assert.Equal(t, Tokens{AccessToken: "a2", RefreshToken: "r2"}, store.tokens)
	assert.Equal(t, []string{"r1"}, refresher.seen)
}

func TestGatewayRefreshFailureLeavesTokensUntouched(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	refresher := &fakeRefresher{err: ErrRefreshRejected}
	gw, err := NewGateway(store, refresher, nil)
	require.NoError(t, err)

	token, ok := gw.Refresh(context.Background(), "a1")

	assert.False(t, ok)
	assert.Empty(t, token)
	assert.Equal(t, Tokens{AccessToken: "a1", RefreshToken: "r1"}, gw.Tokens())
	assert.Equal(t, 0, store.saves)
	assert.EqualValues(t, 1, refresher.calls.Load())
}

func TestGatewayRefreshWithoutRefreshToken(t *testing.T) {
	refresher := &fakeRefresher{next: Tokens{AccessToken: "x"}}
	gw, err := NewGateway(nil, refresher, nil)
	require.NoError(t, err)

	_, ok := gw.Refresh(context.Background(), "")

	assert.False(t, ok)
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestGatewayRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	gw, err := NewGateway(store, &fakeRefresher{next: Tokens{AccessToken: "a2"}}, nil)
	require.NoError(t, err)

	_, ok := gw.Refresh(context.Background(), "a1")
	require.True(t, ok)
	assert.Equal(t, "r1", gw.Tokens().RefreshToken)
}

func TestGatewayPersistFailureStillRefreshes(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	gw, err := NewGateway(store, &fakeRefresher{next: Tokens{AccessToken: "a2", RefreshToken: "r2"}}, nil)
	require.NoError(t, err)
	store.err = errors.New("disk full")

	token, ok := gw.Refresh(context.Background(), "a1")
	require.True(t, ok)
	assert.Equal(t, "a2", token)
}

// TestGatewayConcurrentRefreshSharesOneCall verifies that callers arriving while
// a refresh is outstanding wait for it instead of issuing their own.
func TestGatewayConcurrentRefreshSharesOneCall(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	refresher := &fakeRefresher{
		release: make(chan struct{}),
		next:    Tokens{AccessToken: "a2", RefreshToken: "r2"},
	}
	gw, err := NewGateway(store, refresher, nil)
	require.NoError(t, err)

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, ok := gw.Refresh(context.Background(), "a1")
			if ok {
				results <- token
			}
		}()
	}

	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(refresher.release)
	wg.Wait()
	close(results)

	count := 0
	for token := range results {
		assert.Equal(t, "a2", token)
		count++
	}
	assert.Equal(t, callers, count)
	assert.EqualValues(t, 1, refresher.calls.Load())
}

func TestGatewayRefreshAfterOtherCallerRefreshed(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a2", RefreshToken: "r2"}}
	refresher := &fakeRefresher{next: Tokens{AccessToken: "a3", RefreshToken: "r3"}}
	gw, err := NewGateway(store, refresher, nil)
	require.NoError(t, err)

	token, ok := gw.Refresh(context.Background(), "a1")

	require.True(t, ok)
	assert.Equal(t, "a2", token)
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestGatewaySetTokensPersists(t *testing.T) {
	store := &memoryStore{}
	gw, err := NewGateway(store, nil, nil)
	require.NoError(t, err)

	require.NoError(t, gw.SetTokens(Tokens{AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, "a", gw.CurrentToken())
	assert.Equal(t, "r", store.tokens.RefreshToken)
}

func TestGatewayFlightSkipsExchangeWhenTokenAlreadyReplaced(t *testing.T) {
	store := &memoryStore{tokens: Tokens{AccessToken: "a1", RefreshToken: "r1"}}
	refresher := &fakeRefresher{next: Tokens{AccessToken: "a2", RefreshToken: "r2"}}
	gw, err := NewGateway(store, refresher, nil)
	require.NoError(t, err)

	// First caller refreshes a1.
	token, ok := gw.Refresh(context.Background(), "a1")
	require.True(t, ok)
	require.Equal(t, "a2", token)

	// A second caller that saw a1 rejected reaches the flight only after the
	// first one has left it.
	token, err = gw.exchange(context.Background(), "a1")

	require.NoError(t, err)
	assert.Equal(t, "a2", token)
	assert.EqualValues(t, 1, refresher.calls.Load())
	assert.Equal(t, []string{"r1"}, refresher.seen)
}
