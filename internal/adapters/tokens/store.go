package tokens

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/logging"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	AccessTokenKey  = "token"
	RefreshTokenKey = "refreshToken"
)

// Store is the durable home of the current credential. Writes go straight
// to the backend; when the backend fails the store keeps serving the
// credential from memory for the rest of the process.
type Store struct {
	backend   ports.SecretStore
	namespace string
	logger    *log.Logger

	mu       sync.RWMutex
	loaded   bool
	degraded bool
	current  domain.Credential
	version  uint64

	listenersMu sync.Mutex
	listeners   map[uint64]ports.CredentialListener
	nextID      uint64
}

var _ ports.TokenStore = (*Store)(nil)

// NewStore keeps the two token keys below namespace in backend.
func NewStore(backend ports.SecretStore, namespace string, logger *log.Logger) *Store {
	return &Store{
		backend:   backend,
		namespace: namespace,
		logger:    logging.Component(logger, "tokens"),
		listeners: map[uint64]ports.CredentialListener{},
	}
}

func (s *Store) Get(ctx context.Context) (domain.Credential, bool) {
	s.mu.RLock()
	if s.loaded {
		current := s.current
		s.mu.RUnlock()
		return current, current.Complete()
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.load(ctx)
	}
	return s.current, s.current.Complete()
}

// Set replaces the stored pair. An incomplete pair clears the store instead.
func (s *Store) Set(ctx context.Context, credential domain.Credential) {
	s.Swap(ctx, credential)()
}

func (s *Store) Clear(ctx context.Context) {
	s.Swap(ctx, domain.Credential{})()
}

// Swap writes the pair and returns the listener notification. A notification
// overtaken by a later write is dropped.
func (s *Store) Swap(ctx context.Context, credential domain.Credential) func() {
	if !credential.Complete() {
		if !credential.IsZero() {
			s.logger.Warn("refusing to store incomplete credential, clearing instead")
		}
		credential = domain.Credential{}
	}

	s.mu.Lock()
	s.current = credential
	s.loaded = true
	s.version++
	version := s.version
	if !s.degraded {
		if err := s.write(context.WithoutCancel(ctx), credential); err != nil {
			s.degrade(writeOp(credential), err)
		}
	}
	s.mu.Unlock()

	return func() { s.publish(version, credential) }
}

func (s *Store) Subscribe(listener ports.CredentialListener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// Degraded reports whether the store has fallen back to memory.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.degraded
}

func (s *Store) load(ctx context.Context) {
	access, accessErr := s.backend.Get(ctx, s.key(AccessTokenKey))
	refresh, refreshErr := s.backend.Get(ctx, s.key(RefreshTokenKey))

	if err := ctx.Err(); err != nil {
		return
	}
	s.loaded = true

	if err := storageFailure(accessErr, refreshErr); err != nil {
		s.degrade("load", err)
		return
	}
	if accessErr != nil && refreshErr != nil {
		return
	}

	credential, err := domain.NewCredential(access, refresh)
	if err != nil {
		s.logger.Warn("discarding half-stored credential", "err", err)
		if eraseErr := s.erase(ctx); eraseErr != nil {
			s.degrade("load", eraseErr)
		}
		return
	}

	s.current = credential
}

func (s *Store) write(ctx context.Context, credential domain.Credential) error {
	if credential.Complete() {
		return s.persist(ctx, credential)
	}
	return s.erase(ctx)
}

func writeOp(credential domain.Credential) string {
	if credential.Complete() {
		return "set"
	}
	return "clear"
}

func (s *Store) persist(ctx context.Context, credential domain.Credential) error {
	if err := s.backend.Put(ctx, s.key(AccessTokenKey), credential.AccessToken); err != nil {
		return err
	}
	if err := s.backend.Put(ctx, s.key(RefreshTokenKey), credential.RefreshToken); err != nil {
		if rollbackErr := s.backend.Delete(ctx, s.key(AccessTokenKey)); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}
		return err
	}

	return nil
}

func (s *Store) erase(ctx context.Context) error {
	return errors.Join(
		s.backend.Delete(ctx, s.key(AccessTokenKey)),
		s.backend.Delete(ctx, s.key(RefreshTokenKey)),
	)
}

func (s *Store) degrade(op string, err error) {
	s.degraded = true
	s.logger.Warn("credential storage failed, keeping tokens in memory for this session",
		"op", op,
		"err", errors.Join(domain.ErrStorageUnavailable, err),
	)
}

func (s *Store) publish(version uint64, credential domain.Credential) {
	s.mu.RLock()
	superseded := s.version != version
	s.mu.RUnlock()
	if superseded {
		return
	}

	s.notify(credential, credential.Complete())
}

func (s *Store) notify(credential domain.Credential, ok bool) {
	s.listenersMu.Lock()
	listeners := make([]ports.CredentialListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(credential, ok)
	}
}

func (s *Store) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return path.Join(s.namespace, name)
}

func storageFailure(errs ...error) error {
	var failures []error
	for _, err := range errs {
		if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
