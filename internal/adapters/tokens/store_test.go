package tokens

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bnema/snippets-cli/internal/adapters/secrets/memory"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports/mocks"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pair = domain.Credential{AccessToken: "A1", RefreshToken: "R1"}

func TestStoreSurvivesRestartOnSameBackend(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()

	first := NewStore(backend, "snip/default", nil)
	first.Set(ctx, pair)

	second := NewStore(backend, "snip/default", nil)
	got, ok := second.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, pair, got)

	v, err := backend.Get(ctx, "snip/default/token")
	require.NoError(t, err)
	assert.Equal(t, "A1", v)
	v, err = backend.Get(ctx, "snip/default/refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "R1", v)
}

func TestStoreEmptyBackendHasNoCredential(t *testing.T) {
	store := NewStore(memory.NewStore(), "snip/default", nil)

	got, ok := store.Get(context.Background())

	assert.False(t, ok)
	assert.True(t, got.IsZero())
	assert.False(t, store.Degraded())
}

func TestStoreDiscardsHalfStoredPair(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, backend.Put(ctx, "snip/default/token", "A1"))

	var logs bytes.Buffer
	store := NewStore(backend, "snip/default", log.New(&logs))

	_, ok := store.Get(ctx)

	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
	assert.Contains(t, logs.String(), "half-stored")
}

func TestStoreClearRemovesBothKeys(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()
	store := NewStore(backend, "snip/default", nil)
	store.Set(ctx, pair)
	require.Equal(t, 2, backend.Len())

	store.Clear(ctx)

	_, ok := store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestStoreIncompleteSetClears(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()
	store := NewStore(backend, "snip/default", nil)
	store.Set(ctx, pair)

	store.Set(ctx, domain.Credential{AccessToken: "A2"})

	_, ok := store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestStoreDegradesToMemoryWhenBackendFails(t *testing.T) {
	backend := mocks.NewMockSecretStore(t)
	broken := errors.New("keyring locked")
	backend.EXPECT().Get(mock.Anything, mock.Anything).Return("", broken).Times(2)

	var logs bytes.Buffer
	store := NewStore(backend, "snip/default", log.New(&logs))
	ctx := context.Background()

	_, ok := store.Get(ctx)
	require.False(t, ok)
	assert.True(t, store.Degraded())
	assert.Contains(t, logs.String(), "keyring locked")

	// Backend is no longer touched once degraded; the mock would fail on any further call.
	store.Set(ctx, pair)
	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, pair, got)

	store.Clear(ctx)
	_, ok = store.Get(ctx)
	assert.False(t, ok)
}

func TestStoreRollsBackAccessTokenWhenRefreshWriteFails(t *testing.T) {
	backend := mocks.NewMockSecretStore(t)
	backend.EXPECT().Get(mock.Anything, mock.Anything).Return("", domain.ErrSecretNotFound).Times(2)
	backend.EXPECT().Put(mock.Anything, "snip/default/token", "A1").Return(nil).Once()
	backend.EXPECT().Put(mock.Anything, "snip/default/refreshToken", "R1").Return(errors.New("disk full")).Once()
	backend.EXPECT().Delete(mock.Anything, "snip/default/token").Return(nil).Once()

	store := NewStore(backend, "snip/default", nil)
	ctx := context.Background()
	_, _ = store.Get(ctx)

	store.Set(ctx, pair)

	assert.True(t, store.Degraded())
	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, pair, got)
}

func TestStoreSetPersistsEvenWhenContextCanceled(t *testing.T) {
	backend := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewStore(backend, "snip/default", nil).Set(ctx, pair)

	got, ok := NewStore(backend, "snip/default", nil).Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, pair, got)
}

func TestStoreNamespacesKeepProfilesApart(t *testing.T) {
	backend := memory.NewStore()
	ctx := context.Background()

	NewStore(backend, "snip/work", nil).Set(ctx, pair)

	_, ok := NewStore(backend, "snip/home", nil).Get(ctx)
	assert.False(t, ok)
	_, ok = NewStore(backend, "snip/work", nil).Get(ctx)
	assert.True(t, ok)
}

func TestStoreNotifiesSubscribersUntilUnsubscribed(t *testing.T) {
	store := NewStore(memory.NewStore(), "snip/default", nil)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []bool
	)
	unsubscribe := store.Subscribe(func(credential domain.Credential, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ok)
		if ok {
			assert.Equal(t, pair, credential)
		}
	})

	store.Set(ctx, pair)
	store.Clear(ctx)
	unsubscribe()
	store.Set(ctx, pair)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, events)
}

func TestStoreListenerMayReadStore(t *testing.T) {
	store := NewStore(memory.NewStore(), "snip/default", nil)
	ctx := context.Background()

	var seen domain.Credential
	store.Subscribe(func(domain.Credential, bool) {
		seen, _ = store.Get(ctx)
	})

	store.Set(ctx, pair)

	assert.Equal(t, pair, seen)
}

func TestStoreSwapDefersNotificationToCaller(t *testing.T) {
	store := NewStore(memory.NewStore(), "snip/default", nil)
	ctx := context.Background()

	var events []bool
	store.Subscribe(func(_ domain.Credential, ok bool) {
		events = append(events, ok)
	})

	publish := store.Swap(ctx, pair)

	got, ok := store.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, pair, got)
	assert.Empty(t, events)

	publish()
	assert.Equal(t, []bool{true}, events)
}

func TestStoreSwapDropsOvertakenNotification(t *testing.T) {
	store := NewStore(memory.NewStore(), "snip/default", nil)
	ctx := context.Background()

	var events []bool
	store.Subscribe(func(_ domain.Credential, ok bool) {
		events = append(events, ok)
	})

	stale := store.Swap(ctx, pair)
	store.Clear(ctx)
	stale()

	assert.Equal(t, []bool{false}, events)
}
