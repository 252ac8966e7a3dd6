package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/snippets-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/snippets-cli/internal/adapters/secrets/pass"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
)

// Store reads and writes the primary backend and falls back to the secondary
// one when the primary fails.
type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(), filestore.NewStore(fileRoot))
}

// Put writes to the primary backend and only falls back when it fails. After
// a primary write any fallback copy is removed so that an outdated token is
// never served once the primary becomes unreachable again.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		s.scrubFallback(ctx, key)
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

// Get prefers the primary backend. A value found only in the fallback is
// moved into the primary when the primary merely lacked it.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	switch {
	case fallbackErr == nil:
		if errors.Is(err, domain.ErrSecretNotFound) {
			s.promote(ctx, key, fallbackValue)
		}
		return fallbackValue, nil
	case errors.Is(err, domain.ErrSecretNotFound) && errors.Is(fallbackErr, domain.ErrSecretNotFound):
		return "", fallbackErr
	default:
		return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
	}
}

// Delete removes the key from both backends: a copy left in the fallback
// would be served again by Get once the primary no longer has it.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if err != nil && shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

func (s *Store) promote(ctx context.Context, key, value string) {
	if err := s.primary.Put(ctx, key, value); err != nil {
		return
	}
	s.scrubFallback(ctx, key)
}

// scrubFallback is best effort; a leftover copy is shadowed by the primary.
func (s *Store) scrubFallback(ctx context.Context, key string) {
	_ = s.fallback.Delete(ctx, key)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
