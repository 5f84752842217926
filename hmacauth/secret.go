package hmacauth

import "context"

// SecretResolver looks up the shared secret for an access key id. It is
// called once per validated request and must be safe for concurrent use.
// Implementations return ErrUnknownAccessKey when the id is not known.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, accessID string) (string, error)
}

// SecretResolverFunc adapts an ordinary function to a SecretResolver.
type SecretResolverFunc func(ctx context.Context, accessID string) (string, error)

// ResolveSecret calls f(ctx, accessID).
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, accessID string) (string, error) {
	return f(ctx, accessID)
}
