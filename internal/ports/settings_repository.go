package ports

import (
	"context"

	"github.com/bnema/snippets-cli/internal/domain"
)

type SettingsRepository interface {
	// Load returns the effective settings: defaults, then the file, then SNIP_* variables.
	Load(ctx context.Context) (domain.Settings, error)
	// Set validates value for key and persists it to the settings file.
	Set(ctx context.Context, key, value string) error
	Path() string
}
