package application

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/logging"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	loginPath                = "/auth/login/"
	registerPath             = "/auth/register/"
	logoutPath               = "/auth/logout/"
	userPath                 = "/auth/user/"
	passwordResetPath        = "/auth/password-reset/"
	passwordResetConfirmPath = "/auth/password-reset/confirm/"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshTokenBody struct {
	Refresh string `json:"refresh"`
}

type emailBody struct {
	Email string `json:"email"`
}

// SessionStore holds the observable session state and drives its
// transitions. The lock is never held across a network call.
type SessionStore struct {
	transport ports.Transport
	tokens    ports.TokenStore
	logger    *log.Logger

	mu      sync.RWMutex
	session domain.Session

	subsMu sync.Mutex
	subs   map[uint64]func(domain.Session)
	nextID uint64

	stops []func()
}

func NewSessionStore(transport ports.Transport, tokens ports.TokenStore, logger *log.Logger) *SessionStore {
	s := &SessionStore{
		transport: transport,
		tokens:    tokens,
		logger:    logging.Component(logger, "session"),
		session:   domain.AnonymousSession(),
		subs:      map[uint64]func(domain.Session){},
	}
	s.stops = append(s.stops,
		tokens.Subscribe(s.onCredential),
		transport.Listen(refreshEvents{store: s}),
	)
	return s
}

// Close detaches the store from the token store and the transport.
func (s *SessionStore) Close() {
	for _, stop := range s.stops {
		if stop != nil {
			stop()
		}
	}
	s.stops = nil
}

func (s *SessionStore) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.session.Clone()
}

// Subscribe registers fn for every state change. fn receives a copy.
func (s *SessionStore) Subscribe(fn func(domain.Session)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.set(domain.Session{Status: domain.SessionAuthenticating})

	resp, err := s.transport.Send(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   loginRequest{Email: email, Password: password},
		Public: true,
	})
	if err != nil {
		return s.fail(ctx, fmt.Errorf("login: %w", err))
	}

	var pair tokenPair
	if err := resp.Decode(&pair); err != nil {
		return s.fail(ctx, fmt.Errorf("login: %w", err))
	}
	credential, err := domain.NewCredential(pair.Access, pair.Refresh)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("login: %w", err))
	}
	s.tokens.Set(ctx, credential)

	user, err := s.fetchUser(ctx)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("login: %w", err))
	}

	s.authenticated(ctx, user)
	s.logger.Info("logged in", "user", user.Username)
	return nil
}

// Register creates the account and then logs in with the same email and
// password.
func (s *SessionStore) Register(ctx context.Context, registration domain.Registration) error {
	s.set(domain.Session{Status: domain.SessionAuthenticating})

	_, err := s.transport.Send(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   registerPath,
		Body:   registration,
		Public: true,
	})
	if err != nil {
		return s.fail(ctx, fmt.Errorf("register: %w", err))
	}

	if err := s.Login(ctx, registration.Email, registration.Password); err != nil {
		return fmt.Errorf("login after registration: %w", err)
	}
	return nil
}

// Logout always ends the local session. The server call is best effort and
// only made when there is a credential to revoke.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.transport.AbortRefresh()

	if credential, ok := s.tokens.Get(ctx); ok {
		_, err := s.transport.Send(ctx, ports.Request{
			Method:    http.MethodPost,
			Path:      logoutPath,
			Body:      refreshTokenBody{Refresh: credential.RefreshToken},
			NoRefresh: true,
		})
		if err != nil {
			s.logger.Warn("server logout failed, clearing local session anyway", "err", err)
		}
	}

	s.tokens.Clear(ctx)
	s.set(domain.AnonymousSession())
	return nil
}

// InitializeAuth rebuilds the session from the persisted credential. Any
// failure to confirm it ends the session the same way a failed refresh does.
func (s *SessionStore) InitializeAuth(ctx context.Context) error {
	credential, ok := s.tokens.Get(ctx)
	if !ok {
		s.set(domain.AnonymousSession())
		return nil
	}

	s.set(domain.Session{Status: domain.SessionAuthenticating, Credential: &credential})

	user, err := s.fetchUser(ctx)
	if err != nil {
		s.endSession(ctx)
		return fmt.Errorf("restore session: %w", err)
	}

	s.authenticated(ctx, user)
	return nil
}

func (s *SessionStore) CurrentUser(ctx context.Context) (domain.User, error) {
	user, err := s.fetchUser(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("get current user: %w", err)
	}

	s.replaceUser(user)
	return user, nil
}

func (s *SessionStore) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	resp, err := s.transport.Send(ctx, ports.Request{
		Method: http.MethodPatch,
		Path:   userPath,
		Body:   update,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	var user domain.User
	if err := resp.Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	s.replaceUser(user)
	return user, nil
}

func (s *SessionStore) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := s.transport.Send(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   passwordResetPath,
		Body:   emailBody{Email: email},
		Public: true,
	})
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

func (s *SessionStore) ConfirmPasswordReset(ctx context.Context, confirmation domain.PasswordResetConfirmation) error {
	_, err := s.transport.Send(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   passwordResetConfirmPath,
		Body:   confirmation,
		Public: true,
	})
	if err != nil {
		return fmt.Errorf("confirm password reset: %w", err)
	}
	return nil
}

func (s *SessionStore) fetchUser(ctx context.Context) (domain.User, error) {
	resp, err := s.transport.Send(ctx, ports.Request{Method: http.MethodGet, Path: userPath})
	if err != nil {
		return domain.User{}, err
	}

	var user domain.User
	if err := resp.Decode(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *SessionStore) authenticated(ctx context.Context, user domain.User) {
	credential, ok := s.tokens.Get(ctx)
	if !ok {
		// Lost between the user fetch and now; the credential listener already reset the state.
		s.set(domain.AnonymousSession())
		return
	}
	s.set(domain.Session{User: &user, Credential: &credential, Status: domain.SessionAuthenticated})
}

// fail clears the credential and keeps the failure message for the front end.
func (s *SessionStore) fail(ctx context.Context, err error) error {
	s.tokens.Clear(ctx)
	s.set(domain.Session{Status: domain.SessionError, Error: domain.Message(err)})
	return err
}

func (s *SessionStore) endSession(ctx context.Context) {
	s.transport.AbortRefresh()
	s.tokens.Clear(ctx)
	s.set(domain.AnonymousSession())
}

func (s *SessionStore) replaceUser(user domain.User) {
	s.update(func(session *domain.Session) bool {
		if !session.Authenticated() {
			return false
		}
		session.User = &user
		return true
	})
}

func (s *SessionStore) onCredential(credential domain.Credential, ok bool) {
	s.update(func(session *domain.Session) bool {
		if !session.Authenticated() {
			return false
		}
		if !ok {
			*session = domain.AnonymousSession()
			return true
		}
		session.Credential = &credential
		return true
	})
}

// set replaces the whole state; an unchanged state is not published again.
func (s *SessionStore) set(session domain.Session) {
	s.update(func(current *domain.Session) bool {
		if current.Equal(session) {
			return false
		}
		*current = session
		return true
	})
}

func (s *SessionStore) update(fn func(*domain.Session) bool) {
	s.mu.Lock()
	next := s.session.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		s.logger.Error("rejected invalid session transition", "err", err)
		return
	}
	s.session = next
	snapshot := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("session changed", "status", snapshot.Status.Label())
	s.publish(snapshot)
}

func (s *SessionStore) publish(session domain.Session) {
	s.subsMu.Lock()
	subs := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(session.Clone())
	}
}

// refreshEvents maps refresh episodes onto session status.
type refreshEvents struct {
	store *SessionStore
}

func (e refreshEvents) RefreshStarted() {
	e.store.update(func(session *domain.Session) bool {
		if session.Status != domain.SessionAuthenticated {
			return false
		}
		session.Status = domain.SessionRefreshing
		return true
	})
}

func (e refreshEvents) RefreshFinished(err error) {
	e.store.update(func(session *domain.Session) bool {
		if !session.Authenticated() {
			return false
		}
		if err != nil {
			// A lost session looks exactly like one that never existed.
			*session = domain.AnonymousSession()
			return true
		}
		session.Status = domain.SessionAuthenticated
		return true
	})
}
