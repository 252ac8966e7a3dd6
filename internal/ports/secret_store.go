package ports

import "context"

// SecretStore holds the raw token strings under slash-separated keys such as
// "snip/default/token". Get reports a missing key with
// domain.ErrSecretNotFound, and deleting a missing key succeeds.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
