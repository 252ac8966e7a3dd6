package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bnema/snippets-cli/internal/adapters/httpapi"
	statusadapter "github.com/bnema/snippets-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/snippets-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/snippets-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/snippets-cli/internal/adapters/secrets/file"
	memorystore "github.com/bnema/snippets-cli/internal/adapters/secrets/memory"
	passstore "github.com/bnema/snippets-cli/internal/adapters/secrets/pass"
	"github.com/bnema/snippets-cli/internal/adapters/tokens"
	"github.com/bnema/snippets-cli/internal/application"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/logging"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type app struct {
	service        *application.Service
	settingsRepo   *tomlrepo.Repository
	settings       domain.Settings
	tokens         *tokens.Store
	logger         *log.Logger
	statusRenderer func(application.Status, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
	quiet          bool
}

func wireApp() (*app, error) {
	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire settings repository: %w", err)
	}

	settings, err := repo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load settings from %s: %w", repo.Path(), err)
	}

	logger, err := logging.New(os.Stderr, settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	backend, err := newSecretStore(settings)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}
	tokenStore := tokens.NewStore(backend, settings.SecretNamespace(), logger)

	client, err := httpapi.NewClient(tokenStore, httpapi.Options{
		BaseURL:   settings.BaseURL,
		Timeout:   settings.Timeout,
		UserAgent: settings.UserAgent,
		RateLimit: settings.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire api client: %w", err)
	}

	service, err := application.NewService(
		application.NewSessionStore(client, tokenStore, logger),
		client,
		application.WithProfile(settings.Profile, settings.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("wire service: %w", err)
	}

	return &app{
		service:        service,
		settingsRepo:   repo,
		settings:       settings,
		tokens:         tokenStore,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}

func newSecretStore(settings domain.Settings) (ports.SecretStore, error) {
	switch settings.StorageBackend {
	case domain.StoragePass:
		return passstore.NewStore(), nil
	case domain.StorageFile:
		return filestore.NewStore(settings.StorageDir), nil
	case domain.StorageMemory:
		return memorystore.NewStore(), nil
	case domain.StorageChain:
		return chainstore.NewPassFirstWithFileFallback(settings.StorageDir)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.StorageBackend)
	}
}
