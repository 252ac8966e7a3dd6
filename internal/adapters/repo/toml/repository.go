package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	envPrefix        = "SNIP"
	configPathKey    = "config.path"
	settingsFileMode = 0o600
	settingsDirMode  = 0o700
	settingsDir      = "snip"
	settingsFile     = "config.toml"
	tempFilePattern  = ".config-*.toml.tmp"

	KeyBaseURL        = "api.base_url"
	KeyTimeout        = "api.timeout"
	KeyRateLimit      = "api.rate_limit"
	KeyUserAgent      = "api.user_agent"
	KeyProfile        = "auth.profile"
	KeyStorageBackend = "storage.backend"
	KeyStorageDir     = "storage.dir"
	KeyLogLevel       = "log.level"

	DefaultBaseURL = "http://localhost:8000"
)

// Repository reads settings through viper and writes them back with
// go-toml, one atomic rename per change.
type Repository struct {
	cfg  *viper.Viper
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SettingsRepository = (*Repository)(nil)

// Keys lists every settable key in display order.
func Keys() []string {
	return []string{
		KeyBaseURL,
		KeyTimeout,
		KeyRateLimit,
		KeyUserAgent,
		KeyProfile,
		KeyStorageBackend,
		KeyStorageDir,
		KeyLogLevel,
	}
}

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(configPathKey, filepath.Join(configDir, settingsDir, settingsFile))
	cfg.SetDefault(KeyBaseURL, DefaultBaseURL)
	cfg.SetDefault(KeyTimeout, "30s")
	cfg.SetDefault(KeyRateLimit, 0)
	cfg.SetDefault(KeyUserAgent, "snip")
	cfg.SetDefault(KeyProfile, domain.DefaultProfile)
	cfg.SetDefault(KeyStorageBackend, string(domain.StorageChain))
	cfg.SetDefault(KeyStorageDir, filepath.Join(configDir, settingsDir, "secrets"))
	cfg.SetDefault(KeyLogLevel, "warn")

	path := cfg.GetString(configPathKey)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings path is empty")
	}
	path, err = normalizePath(path)
	if err != nil {
		return nil, err
	}

	cfg.SetConfigFile(path)
	cfg.SetConfigType("toml")
	if _, err := os.Stat(path); err == nil {
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat settings file: %w", err)
	}

	return &Repository{cfg: cfg, path: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Load(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return settingsFromValues(r.effective())
}

// Set persists one key. Only the file is written; SNIP_* variables still win
// on the next Load.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	if err := file.set(key, value); err != nil {
		return err
	}

	candidate := r.effective()
	candidate[key] = value
	if _, err := settingsFromValues(candidate); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.writeSchema(file); err != nil {
		return err
	}

	r.cfg.Set(key, value)
	return nil
}

// Values returns the effective value of every key.
func (r *Repository) Values() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.effective()
}

func (r *Repository) effective() map[string]string {
	values := make(map[string]string, len(Keys()))
	for _, key := range Keys() {
		values[key] = r.cfg.GetString(key)
	}
	return values
}

func settingsFromValues(values map[string]string) (domain.Settings, error) {
	timeout, err := time.ParseDuration(strings.TrimSpace(values[KeyTimeout]))
	if err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, KeyTimeout, err)
	}
	rateLimit, err := strconv.ParseFloat(strings.TrimSpace(values[KeyRateLimit]), 64)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, KeyRateLimit, err)
	}

	settings := domain.Settings{
		BaseURL:        strings.TrimSpace(values[KeyBaseURL]),
		Timeout:        timeout,
		RateLimit:      rateLimit,
		UserAgent:      strings.TrimSpace(values[KeyUserAgent]),
		Profile:        strings.TrimSpace(values[KeyProfile]),
		StorageBackend: domain.StorageBackend(strings.ToLower(strings.TrimSpace(values[KeyStorageBackend]))),
		StorageDir:     strings.TrimSpace(values[KeyStorageDir]),
		LogLevel:       strings.TrimSpace(values[KeyLogLevel]),
	}
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}

	return settings, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read settings file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode settings file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), settingsDirMode); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tempFile.Chmod(settingsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	cleanup = false

	return nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
