package hmacauth

import "errors"

// Request validation errors. Every one of them results in the request
// being rejected before the downstream handler runs.
var (
	// ErrTimestampRequired is returned when the X-Authorization-Timestamp
	// header is absent or is not a unix timestamp in seconds.
	ErrTimestampRequired = errors.New("hmacauth: timestamp required")

	// ErrTimestampTooFarInFuture is returned when the request timestamp is
	// later than now plus the configured tolerance.
	ErrTimestampTooFarInFuture = errors.New("hmacauth: timestamp too far in the future")

	// ErrTimestampTooFarInPast is returned when the request timestamp is
	// earlier than now minus the configured tolerance.
	ErrTimestampTooFarInPast = errors.New("hmacauth: timestamp too far in the past")

	// ErrAuthorizationRequired is returned when the Authorization header is
	// absent.
	ErrAuthorizationRequired = errors.New("hmacauth: authorization required")

	// ErrMalformedHeader is returned when the Authorization header cannot be
	// parsed or is missing one of realm, id, nonce or version.
	ErrMalformedHeader = errors.New("hmacauth: malformed authorization header")

	// ErrMissingCustomHeader is returned when a header named in the
	// Authorization "headers" list is not present on the message.
	ErrMissingCustomHeader = errors.New("hmacauth: signed custom header missing")

	// ErrBodyDigestMismatch is returned when X-Authorization-Content-SHA256
	// does not match the SHA-256 digest of the body.
	ErrBodyDigestMismatch = errors.New("hmacauth: body digest mismatch")

	// ErrSecretUnavailable is returned when the secret for an access key
	// cannot be resolved.
	ErrSecretUnavailable = errors.New("hmacauth: secret unavailable")

	// ErrInvalidSignature is returned when the request signature does not
	// match the computed signature.
	ErrInvalidSignature = errors.New("hmacauth: invalid signature")
)

// Secret lookup errors.
var (
	// ErrUnknownAccessKey is returned by a SecretResolver when no secret is
	// registered for the access key id.
	ErrUnknownAccessKey = errors.New("hmacauth: unknown access key")

	// ErrInvalidSecret is returned when a secret is not valid base64.
	ErrInvalidSecret = errors.New("hmacauth: secret is not valid base64")
)

// Response verification errors.
var (
	// ErrResponseSignatureMissing is returned when a response that must be
	// signed carries no X-Server-Authorization-HMAC-SHA256 header.
	ErrResponseSignatureMissing = errors.New("hmacauth: response signature missing")

	// ErrResponseAuthenticationFailed is returned when the response
	// signature does not match the response body.
	ErrResponseAuthenticationFailed = errors.New("hmacauth: response authentication failed")
)

// Configuration errors. These are programming or setup mistakes and are
// reported when a Validator, Signer or Middleware is constructed.
var (
	// ErrUnsupportedAlgorithm is returned for an algorithm name other than
	// SHA1, SHA256, SHA384 or SHA512.
	ErrUnsupportedAlgorithm = errors.New("hmacauth: unsupported algorithm")

	// ErrInvalidURI is returned when a request has no usable URL.
	ErrInvalidURI = errors.New("hmacauth: invalid request uri")

	// ErrNoResolver is returned when ValidatorConfig has no SecretResolver.
	ErrNoResolver = errors.New("hmacauth: secret resolver must not be nil")

	// ErrNoSigner is returned when a Transport has no Signer configured.
	ErrNoSigner = errors.New("hmacauth: signer must not be nil")

	// ErrNoCredentials is returned when SignerConfig lacks a realm, access
	// key id or secret.
	ErrNoCredentials = errors.New("hmacauth: realm, access key id and secret are required")

	// ErrInvalidHeaderName is returned when a configured custom header name
	// is not a valid HTTP field name.
	ErrInvalidHeaderName = errors.New("hmacauth: invalid custom header name")

	// ErrInvalidProxy is returned when a trusted proxy entry is neither an
	// IP address nor a CIDR range.
	ErrInvalidProxy = errors.New("hmacauth: invalid trusted proxy entry")
)
