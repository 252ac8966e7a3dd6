package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/snippets-cli/internal/adapters/secrets/memory"
	"github.com/bnema/snippets-cli/internal/adapters/tokens"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService accepts exactly one access token and hands out the next one on refresh.
type fakeService struct {
	mu          sync.Mutex
	validToken  string
	nextToken   string
	refreshCode int
	// rejectAll makes the resource endpoint refuse every token.
	rejectAll bool
	seen      []string

	refreshCalls atomic.Int32
	// refreshGate, when set, holds the refresh handler until closed.
	refreshGate chan struct{}
}

func (s *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body refreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "R1", body.Refresh)

		if s.refreshGate != nil {
			select {
			case <-s.refreshGate:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		code := s.refreshCode
		next := s.nextToken
		if code == 0 {
			s.validToken = next
		}
		s.mu.Unlock()

		if code != 0 {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(refreshResponse{Access: next})
	})
	mux.HandleFunc("/snippets/1/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.seen = append(s.seen, r.Header.Get("Authorization"))
		valid := "Bearer " + s.validToken
		rejectAll := s.rejectAll
		s.mu.Unlock()

		if rejectAll || r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"title":"hello"}`))
	})
	return mux
}

func (s *fakeService) authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func newTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *tokens.Store) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokens.NewStore(memory.NewStore(), "test", nil)
	opts.BaseURL = server.URL
	client, err := NewClient(store, opts)
	require.NoError(t, err)

	return client, store
}

type recordingListener struct {
	mu       sync.Mutex
	started  int
	finished []error
}

func (l *recordingListener) RefreshStarted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
}

func (l *recordingListener) RefreshFinished(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, err)
}

func TestSendAttachesTokenAndStandardHeaders(t *testing.T) {
	var got http.Header
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/api/snippets/", r.URL.Path)
		assert.Equal(t, "go", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(`[]`))
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokens.NewStore(memory.NewStore(), "test", nil)
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})
	client, err := NewClient(store, Options{BaseURL: server.URL + "/api", UserAgent: "snip-test"})
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), ports.Request{
		Method: http.MethodGet,
		Path:   "/snippets/",
		Query:  url.Values{"language": {"go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "Bearer A1", got.Get("Authorization"))
	assert.Equal(t, "snip-test", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestSendOmitsAuthorizationForPublicAndAnonymousRequests(t *testing.T) {
	var authHeaders []string
	var mu sync.Mutex
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{}`))
	})
	client, store := newTestClient(t, handler, Options{})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodPost, Path: "/auth/login/", Body: map[string]string{"email": "u@x.com"}})
	require.NoError(t, err)

	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})
	_, err = client.Send(context.Background(), ports.Request{Method: http.MethodPost, Path: "/auth/login/", Body: map[string]string{}, Public: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"", ""}, authHeaders)
}

func TestSendRefreshesExpiredTokenAndReplaysOnce(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2"}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	listener := &recordingListener{}
	stop := client.Listen(listener)
	defer stop()

	resp, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
	require.NoError(t, err)

	var snippet struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, resp.Decode(&snippet))
	assert.Equal(t, "hello", snippet.Title)

	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, service.authorizations())
	assert.Equal(t, int32(1), service.refreshCalls.Load())

	credential, ok := store.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, domain.Credential{AccessToken: "A2", RefreshToken: "R1"}, credential)

	assert.Equal(t, 1, listener.started)
	assert.Equal(t, []error{nil}, listener.finished)
}

func TestSendConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	const parallel = 5

	service := &fakeService{validToken: "A2", nextToken: "A2", refreshGate: make(chan struct{})}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	var wg sync.WaitGroup
	errs := make(chan error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
			errs <- err
		}()
	}

	// Hold the refresh until every request has been rejected with the old token.
	require.Eventually(t, func() bool {
		return len(service.authorizations()) == parallel
	}, 2*time.Second, 5*time.Millisecond)
	close(service.refreshGate)

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), service.refreshCalls.Load())
	replayed := 0
	for _, header := range service.authorizations() {
		if header == "Bearer A2" {
			replayed++
		}
	}
	assert.Equal(t, parallel, replayed)
}

func TestSendDoesNotRetryReplayThatIsRejectedAgain(t *testing.T) {
	service := &fakeService{nextToken: "A2", rejectAll: true}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.Equal(t, int32(1), service.refreshCalls.Load())
	assert.Len(t, service.authorizations(), 2)
}

func TestSendRefreshFailureClearsTokensAndFailsRequest(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2", refreshCode: http.StatusUnauthorized}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	listener := &recordingListener{}
	client.Listen(listener)

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, ok := store.Get(context.Background())
	assert.False(t, ok)
	require.Len(t, listener.finished, 1)
	assert.Error(t, listener.finished[0])
	assert.Equal(t, []string{"Bearer A1"}, service.authorizations())
}

func TestSendWithoutRefreshTokenFailsWithoutRefreshing(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2"}
	client, _ := newTestClient(t, service.handler(t), Options{})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})

	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Equal(t, int32(0), service.refreshCalls.Load())
}

func TestSendNoRefreshPassesUnauthorizedThrough(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2"}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/", NoRefresh: true})

	assert.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.Equal(t, int32(0), service.refreshCalls.Load())
	_, ok := store.Get(context.Background())
	assert.True(t, ok)
}

func TestSendTimeoutIsNetworkErrorAndNeverRefreshes(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(http.ResponseWriter, *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/slow/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	client, store := newTestClient(t, mux, Options{Timeout: 50 * time.Millisecond})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/slow/"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.NotErrorIs(t, err, domain.ErrAuthExpired)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestSendPassesValidationErrorsThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"email":["Enter a valid email address."]}`))
	})
	client, _ := newTestClient(t, handler, Options{})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodPost, Path: "/auth/register/", Public: true})

	require.ErrorIs(t, err, domain.ErrValidation)
	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "email: Enter a valid email address.", domain.Message(err))
}

func TestAbortRefreshReleasesWaiters(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2", refreshGate: make(chan struct{})}
	client, store := newTestClient(t, service.handler(t), Options{})
	t.Cleanup(func() { close(service.refreshGate) })
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return service.refreshCalls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	client.AbortRefresh()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrSessionEnded)
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not released by AbortRefresh")
	}

	credential, ok := store.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, "A1", credential.AccessToken)
}

func TestSendWaiterContextCancelDoesNotEndEpisode(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2", refreshGate: make(chan struct{})}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.Send(ctx, ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return service.refreshCalls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(service.refreshGate)
	require.Eventually(t, func() bool {
		credential, _ := store.Get(context.Background())
		return credential.AccessToken == "A2"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	store := tokens.NewStore(memory.NewStore(), "test", nil)

	tests := []struct {
		name    string
		baseURL string
		wantErr string
	}{
		{name: "empty", baseURL: " ", wantErr: "api base url is required"},
		{name: "scheme", baseURL: "ftp://example.com", wantErr: "must use http or https"},
		{name: "host", baseURL: "http://", wantErr: "has no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(store, Options{BaseURL: tt.baseURL})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := NewClient(nil, Options{BaseURL: "http://example.com"})
	assert.ErrorContains(t, err, "token store is required")
}

func TestSendRejectsAbsolutePaths(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler(), Options{})

	_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "http://evil.example/steal"})

	assert.ErrorContains(t, err, "must be relative to the base URL")
}

func TestSendConcurrentExpiredRequestsFailTogetherWhenRefreshFails(t *testing.T) {
	const parallel = 4

	service := &fakeService{validToken: "A2", nextToken: "A2", refreshCode: http.StatusUnauthorized, refreshGate: make(chan struct{})}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	var wg sync.WaitGroup
	errs := make(chan error, parallel)
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
			errs <- err
		}()
	}

	require.Eventually(t, func() bool {
		return len(service.authorizations()) == parallel && service.refreshCalls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	// Give the last rejected request time to join the held episode.
	time.Sleep(50 * time.Millisecond)
	close(service.refreshGate)

	wg.Wait()
	close(errs)
	failed := 0
	for err := range errs {
		assert.ErrorIs(t, err, domain.ErrRefreshFailed)
		failed++
	}

	assert.Equal(t, parallel, failed)
	assert.Equal(t, int32(1), service.refreshCalls.Load())
	assert.Len(t, service.authorizations(), parallel, "no request is replayed after a failed refresh")
	_, ok := store.Get(context.Background())
	assert.False(t, ok)
}

type requestOnFinish struct {
	client *Client
	sent   atomic.Bool
	err    chan error
}

func (l *requestOnFinish) RefreshStarted() {}

func (l *requestOnFinish) RefreshFinished(err error) {
	if err != nil {
		return
	}
	if !l.sent.CompareAndSwap(false, true) {
		return
	}
	_, sendErr := l.client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
	l.err <- sendErr
}

func TestRefreshListenerMaySendAfterEpisodeEnds(t *testing.T) {
	service := &fakeService{nextToken: "A2", rejectAll: true}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	listener := &requestOnFinish{client: client, err: make(chan error, 1)}
	client.Listen(listener)

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrAuthExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("request never returned while a listener was sending")
	}

	// The listener's 401 came back with the token the first episode wrote,
	// so it ran an episode of its own.
	assert.ErrorIs(t, <-listener.err, domain.ErrAuthExpired)
	assert.Equal(t, int32(2), service.refreshCalls.Load())
}

func TestCredentialListenerMaySendWhenRefreshClearsTokens(t *testing.T) {
	service := &fakeService{validToken: "A2", nextToken: "A2", refreshCode: http.StatusUnauthorized}
	client, store := newTestClient(t, service.handler(t), Options{})
	store.Set(context.Background(), domain.Credential{AccessToken: "A1", RefreshToken: "R1"})

	listenerErr := make(chan error, 1)
	store.Subscribe(func(_ domain.Credential, ok bool) {
		if ok {
			return
		}
		_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
		listenerErr <- err
	})

	done := make(chan error, 1)
	go func() {
		_, err := client.Send(context.Background(), ports.Request{Method: http.MethodGet, Path: "/snippets/1/"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("request never returned while a credential listener was sending")
	}
	assert.ErrorIs(t, <-listenerErr, domain.ErrNotAuthenticated)
	assert.Equal(t, int32(1), service.refreshCalls.Load())
}
