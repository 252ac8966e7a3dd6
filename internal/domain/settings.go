package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type StorageBackend string

const (
	StorageChain  StorageBackend = "chain"
	StoragePass   StorageBackend = "pass"
	StorageFile   StorageBackend = "file"
	StorageMemory StorageBackend = "memory"
)

func (b StorageBackend) Valid() bool {
	switch b {
	case StorageChain, StoragePass, StorageFile, StorageMemory:
		return true
	default:
		return false
	}
}

const DefaultProfile = "default"

// Settings are the user-tunable knobs of the client.
type Settings struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	UserAgent string

	Profile string

	StorageBackend StorageBackend
	// StorageDir is where the file backend keeps secrets.
	StorageDir string

	LogLevel string
}

func (s Settings) Validate() error {
	base, err := url.Parse(strings.TrimSpace(s.BaseURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("%w: api.base_url %q must be an http(s) URL", ErrInvalidInput, s.BaseURL)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", ErrInvalidInput)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidInput)
	}
	if strings.TrimSpace(s.Profile) == "" || strings.ContainsAny(s.Profile, `/\`) {
		return fmt.Errorf("%w: auth.profile %q must be a plain name", ErrInvalidInput, s.Profile)
	}
	if !s.StorageBackend.Valid() {
		return fmt.Errorf("%w: storage.backend %q is not one of chain, pass, file, memory", ErrInvalidInput, s.StorageBackend)
	}

	return nil
}

// SecretNamespace is the key prefix the profile's tokens live under.
func (s Settings) SecretNamespace() string {
	return "snip/" + s.Profile
}
