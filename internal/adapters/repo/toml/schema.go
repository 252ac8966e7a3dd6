package toml

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bnema/snippets-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	API     apiSchema     `toml:"api,omitempty"`
	Auth    authSchema    `toml:"auth,omitempty"`
	Storage storageSchema `toml:"storage,omitempty"`
	Log     logSchema     `toml:"log,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported settings schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// set stores value under key after checking it parses as the key's type.
func (s *fileSchema) set(key, value string) error {
	switch key {
	case KeyBaseURL:
		s.API.BaseURL = value
	case KeyTimeout:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration such as 30s: %w", domain.ErrInvalidInput, key, err)
		}
		s.API.Timeout = value
	case KeyRateLimit:
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %w", domain.ErrInvalidInput, key, err)
		}
		s.API.RateLimit = &rate
	case KeyUserAgent:
		s.API.UserAgent = value
	case KeyProfile:
		s.Auth.Profile = value
	case KeyStorageBackend:
		s.Storage.Backend = value
	case KeyStorageDir:
		s.Storage.Dir = value
	case KeyLogLevel:
		s.Log.Level = value
	default:
		return fmt.Errorf("%w: unknown settings key %q", domain.ErrInvalidInput, key)
	}

	return nil
}

type apiSchema struct {
	BaseURL   string   `toml:"base_url,omitempty"`
	Timeout   string   `toml:"timeout,omitempty"`
	RateLimit *float64 `toml:"rate_limit,omitempty"`
	UserAgent string   `toml:"user_agent,omitempty"`
}

type authSchema struct {
	Profile string `toml:"profile,omitempty"`
}

type storageSchema struct {
	Backend string `toml:"backend,omitempty"`
	Dir     string `toml:"dir,omitempty"`
}

type logSchema struct {
	Level string `toml:"level,omitempty"`
}
