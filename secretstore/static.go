package secretstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vitalvas/httphmac/hmacauth"
)

// Static resolves secrets from a fixed map.
type Static struct {
	secrets map[string]string
}

// NewStatic copies secrets into a Static resolver. Every secret must be
// valid base64.
func NewStatic(secrets map[string]string) (*Static, error) {
	copied := make(map[string]string, len(secrets))

	for id, secret := range secrets {
		if id == "" {
			return nil, errors.New("empty access key id")
		}

		if err := hmacauth.ValidateSecret(secret); err != nil {
			return nil, errors.Wrapf(err, "access key %q", id)
		}

		copied[id] = secret
	}

	return &Static{secrets: copied}, nil
}

// ResolveSecret implements hmacauth.SecretResolver.
func (s *Static) ResolveSecret(_ context.Context, accessID string) (string, error) {
	secret, ok := s.secrets[accessID]
	if !ok {
		return "", hmacauth.ErrUnknownAccessKey
	}

	return secret, nil
}

// Len returns the number of registered access keys.
func (s *Static) Len() int {
	return len(s.secrets)
}
