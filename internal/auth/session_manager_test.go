package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *InMemorySessionStore, *clockwork.FakeClock) {
	t.Helper()
	store := NewInMemorySessionStore()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	manager := NewManager(Options{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "vidshare-test",
		Clock:         clock,
	}, store)
	return manager, store, clock
}

var alice = Identity{UserID: "user-1", Username: "alice"}

func TestManagerIssueAndAuthenticate(t *testing.T) {
	manager, store, clock := newTestManager(t)

	tokens, err := manager.Issue(context.Background(), alice)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.True(t, clock.Now().Add(15*time.Minute).Equal(tokens.AccessExpiresAt))
	assert.True(t, store.Has(alice.UserID))

	id, err := manager.Authenticate(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _, _ := newTestManager(t)
	_, err := manager.Issue(context.Background(), Identity{})
	assert.Error(t, err)
}

func TestManagerAuthenticateRejectsBadTokens(t *testing.T) {
	manager, _, clock := newTestManager(t)
	tokens, err := manager.Issue(context.Background(), alice)
	require.NoError(t, err)

	_, err = manager.Authenticate("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A refresh token is signed with a different key and type.
	_, err = manager.Authenticate(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(16 * time.Minute)
	_, err = manager.Authenticate(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, IsUnauthorized(err))
}

func TestManagerRefreshRotates(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, alice)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, err := manager.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	id, err := manager.Authenticate(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice, id)

	third, err := manager.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.RefreshToken)

	// The rotated-out token is detected as reuse.
	_, err = manager.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _, clock := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tokens, err := manager.Issue(ctx, alice)
	require.NoError(t, err)

	_, err = manager.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, manager.Invalidate(ctx, alice.UserID))
	_, err = manager.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	tokens, err = manager.Issue(ctx, alice)
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	_, err = manager.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManagerLoginOverwritesPreviousSlot(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Issue(ctx, alice)
	require.NoError(t, err)
	second, err := manager.Issue(ctx, alice)
	require.NoError(t, err)

	_, err = manager.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	_, err = manager.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestManagerConcurrentRefreshSingleWinner(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, alice)
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := manager.Refresh(ctx, tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, callers-1)
	for _, err := range failures {
		assert.True(t, errors.Is(err, ErrTokenMismatch), "unexpected error %v", err)
	}
}
