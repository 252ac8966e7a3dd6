package ports

import (
	"context"

	"github.com/bnema/snippets-cli/internal/domain"
)

// CredentialListener receives the stored credential after every change; ok is false once cleared.
type CredentialListener func(credential domain.Credential, ok bool)

// TokenStore never fails: storage problems degrade it to memory for the rest of the process.
type TokenStore interface {
	Get(ctx context.Context) (domain.Credential, bool)
	Set(ctx context.Context, credential domain.Credential)
	Clear(ctx context.Context)
	// Swap writes like Set (a zero credential clears) but leaves notifying
	// listeners to the caller, who runs publish once it holds no locks.
	Swap(ctx context.Context, credential domain.Credential) (publish func())
	Subscribe(listener CredentialListener) (unsubscribe func())
}
