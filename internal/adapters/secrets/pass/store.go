package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
)

// ErrUnavailable means pass itself cannot be used on this machine.
var ErrUnavailable = fmt.Errorf("%w: pass command not found", domain.ErrStorageUnavailable)

const (
	// DefaultTimeout bounds one pass invocation; gpg may be waiting on a
	// pinentry nobody will answer.
	DefaultTimeout = 10 * time.Second

	notInStoreMarker      = "is not in the password store"
	notInitializedMarker  = "Try \"pass init\""
	decryptionFailedToken = "decryption failed"
)

type runFunc func(ctx context.Context, input string, args ...string) (stdout string, stderr string, err error)

// Store keeps each token as a single-line pass(1) entry.
type Store struct {
	run     runFunc
	timeout time.Duration
}

var _ ports.SecretStore = (*Store)(nil)

type Option func(*Store)

// WithTimeout overrides DefaultTimeout. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		s.timeout = timeout
	}
}

func NewStore(opts ...Option) *Store {
	store := &Store{run: runPassCommand, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("pass put %q: %w: value spans several lines", key, domain.ErrInvalidInput)
	}

	_, stderr, err := s.exec(ctx, value+"\n", "insert", "-m", "-f", key)
	if err != nil {
		return classify("put", key, err, stderr)
	}

	return nil
}

// Get returns the first line of the entry, the pass convention for the
// secret itself.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.exec(ctx, "", "show", key)
	if err != nil {
		return "", classify("get", key, err, stderr)
	}

	first, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(first, "\r"), nil
}

// Delete treats a missing entry as already deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.exec(ctx, "", "rm", "-f", key)
	if err != nil {
		err = classify("delete", key, err, stderr)
		if errors.Is(err, domain.ErrSecretNotFound) {
			return nil
		}
		return err
	}

	return nil
}

func (s *Store) exec(ctx context.Context, input string, args ...string) (string, string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stdout, stderr, err := s.run(ctx, input, args...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: timed out after %s: %w", domain.ErrStorageUnavailable, s.timeout, err)
	}
	return stdout, stderr, err
}

func runPassCommand(ctx context.Context, input string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

// classify maps pass's stderr onto the secret store errors callers branch on.
func classify(op string, key string, err error, stderr string) error {
	switch {
	case strings.Contains(stderr, notInStoreMarker):
		return fmt.Errorf("pass %s %q: %w", op, key, domain.ErrSecretNotFound)
	case strings.Contains(stderr, notInitializedMarker), strings.Contains(stderr, decryptionFailedToken):
		return fmt.Errorf("pass %s %q: %w: %w: %s", op, key, domain.ErrStorageUnavailable, err, stderr)
	case stderr == "":
		return fmt.Errorf("pass %s %q: %w", op, key, err)
	default:
		return fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
	}
}
