package httpapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

type exchangeFunc func(ctx context.Context, refreshToken string) (string, error)

// refresher owns the refresh episode. Every request that sees an expired
// token joins the same in-flight exchange, so one storm of 401s produces a
// single call to the refresh endpoint. Earlier clients of this API started
// one refresh per rejected request; this one deliberately does not.
type refresher struct {
	tokens   ports.TokenStore
	exchange exchangeFunc
	logger   *log.Logger

	// mu makes start-or-join atomic and covers the token write at the end of
	// an episode. Nothing calls out to listeners while holding it.
	mu         sync.Mutex
	group      singleflight.Group
	generation uint64
	aborted    chan struct{}
	cancel     context.CancelFunc

	listenersMu sync.Mutex
	listeners   map[uint64]ports.RefreshListener
	nextID      uint64
}

func newRefresher(tokens ports.TokenStore, exchange exchangeFunc, logger *log.Logger) *refresher {
	return &refresher{
		tokens:    tokens,
		exchange:  exchange,
		logger:    logger,
		aborted:   make(chan struct{}),
		listeners: map[uint64]ports.RefreshListener{},
	}
}

// await blocks until the active episode resolves. usedToken is the access
// token the rejected request carried.
func (r *refresher) await(ctx context.Context, usedToken string) error {
	r.mu.Lock()

	credential, ok := r.tokens.Get(ctx)
	if !ok {
		r.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	if credential.AccessToken != usedToken {
		// A newer token already landed; replay with it.
		r.mu.Unlock()
		return nil
	}

	generation := r.generation
	aborted := r.aborted
	result := r.group.DoChan(refreshKey, func() (any, error) {
		return nil, r.run(generation, credential)
	})
	r.mu.Unlock()

	select {
	case res := <-result:
		return res.Err
	case <-aborted:
		return domain.ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *refresher) run(generation uint64, credential domain.Credential) error {
	r.mu.Lock()
	if generation != r.generation {
		r.mu.Unlock()
		return domain.ErrSessionEnded
	}
	// Detached from any single waiter so one caller giving up does not end
	// the episode for the others.
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	r.logger.Debug("refresh started")
	r.notify(func(l ports.RefreshListener) { l.RefreshStarted() })

	access, err := r.exchange(ctx, credential.RefreshToken)

	r.mu.Lock()
	if generation != r.generation {
		r.mu.Unlock()
		r.logger.Debug("refresh result discarded after session ended")
		return domain.ErrSessionEnded
	}
	r.cancel = nil
	// The episode ends here: a 401 from now on starts a new one instead of
	// joining a call whose token is already written.
	r.group.Forget(refreshKey)

	// Whoever replaced or cleared the credential meanwhile owns the session
	// state, so listeners are not told about this episode's outcome.
	current, ok := r.tokens.Get(ctx)
	if !ok {
		r.mu.Unlock()
		return domain.ErrSessionEnded
	}
	if current.RefreshToken != credential.RefreshToken {
		r.mu.Unlock()
		r.logger.Debug("refresh result discarded, credential replaced meanwhile")
		return nil
	}

	if err != nil {
		publish := r.tokens.Swap(ctx, domain.Credential{})
		r.mu.Unlock()
		publish()

		r.logger.Warn("refresh failed, session cleared", "err", err)
		r.notify(func(l ports.RefreshListener) { l.RefreshFinished(err) })
		return fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}

	publish := r.tokens.Swap(ctx, credential.WithAccessToken(access))
	r.mu.Unlock()
	publish()

	r.logger.Debug("refresh finished")
	r.notify(func(l ports.RefreshListener) { l.RefreshFinished(nil) })
	return nil
}

// abort releases every waiter of the current episode with
// domain.ErrSessionEnded. An exchange still in flight is cancelled and its
// result never reaches the token store.
func (r *refresher) abort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	close(r.aborted)
	r.aborted = make(chan struct{})
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.group.Forget(refreshKey)
}

func (r *refresher) listen(listener ports.RefreshListener) func() {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = listener

	return func() {
		r.listenersMu.Lock()
		defer r.listenersMu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *refresher) notify(fn func(ports.RefreshListener)) {
	r.listenersMu.Lock()
	listeners := make([]ports.RefreshListener, 0, len(r.listeners))
	for _, listener := range r.listeners {
		listeners = append(listeners, listener)
	}
	r.listenersMu.Unlock()

	for _, listener := range listeners {
		fn(listener)
	}
}
