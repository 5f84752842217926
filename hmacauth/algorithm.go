package hmacauth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
)

// Algorithm identifies the HMAC hash function used to sign messages.
type Algorithm string

const (
	// AlgorithmSHA1 is HMAC using SHA-1.
	AlgorithmSHA1 Algorithm = "SHA1"

	// AlgorithmSHA256 is HMAC using SHA-256. It is the protocol default.
	AlgorithmSHA256 Algorithm = "SHA256"

	// AlgorithmSHA384 is HMAC using SHA-384.
	AlgorithmSHA384 Algorithm = "SHA384"

	// AlgorithmSHA512 is HMAC using SHA-512.
	AlgorithmSHA512 Algorithm = "SHA512"
)

// ParseAlgorithm returns the Algorithm for a configuration name of the form
// SHA<bits>. Any other name is rejected with ErrUnsupportedAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	alg := Algorithm(name)
	if alg.hash() == nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}

	return alg, nil
}

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) hash() func() hash.Hash {
	switch a {
	case AlgorithmSHA1:
		return sha1.New
	case AlgorithmSHA256:
		return sha256.New
	case AlgorithmSHA384:
		return sha512.New384
	case AlgorithmSHA512:
		return sha512.New
	default:
		return nil
	}
}

// Sign computes the base64-encoded HMAC of message. The secret is the
// base64 text shared between client and server; its decoded bytes are the
// HMAC key.
func (a Algorithm) Sign(secret string, message []byte) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}

	sum, err := a.mac(key, message)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(sum), nil
}

// Verify reports whether signature is the base64 HMAC of message under
// secret. The comparison is constant time.
func (a Algorithm) Verify(secret string, message []byte, signature string) bool {
	expected, err := a.Sign(secret, message)
	if err != nil {
		return false
	}

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (a Algorithm) mac(key, message []byte) ([]byte, error) {
	h := a.hash()
	if h == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
	}

	m := hmac.New(h, key)
	m.Write(message)

	return m.Sum(nil), nil
}

// ValidateSecret reports whether secret can be used as a shared secret:
// non-empty, valid standard base64.
func ValidateSecret(secret string) error {
	_, err := decodeSecret(secret)

	return err
}

func decodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidSecret)
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return key, nil
}
