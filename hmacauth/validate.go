package hmacauth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the default replay window on either side of the
// current time.
const DefaultTolerance = 900 * time.Second

// Reason is the diagnostic outcome of a validation. Every reason except
// ReasonAuthorized is reported to the client as the same 401 response.
type Reason string

const (
	ReasonAuthorized              Reason = "authorized"
	ReasonTimestampRequired       Reason = "timestamp_required"
	ReasonTimestampTooFarInFuture Reason = "timestamp_too_far_in_future"
	ReasonTimestampTooFarInPast   Reason = "timestamp_too_far_in_past"
	ReasonAuthorizationRequired   Reason = "authorization_required"
	ReasonAuthorizationInvalid    Reason = "authorization_invalid"
	ReasonMissingCustomHeader     Reason = "missing_custom_header"
	ReasonBodyDigestMismatch      Reason = "body_digest_mismatch"
	ReasonBodyUnreadable          Reason = "body_unreadable"
	ReasonSecretUnavailable       Reason = "secret_unavailable"
	ReasonInvalidSignature        Reason = "invalid_signature"
)

// Result is the outcome of Validator.Validate.
type Result struct {
	Reason Reason

	// Authorization is the parsed header. It is zero when validation
	// stopped before the header was parsed.
	Authorization AuthorizationHeader

	// Timestamp is the raw X-Authorization-Timestamp value.
	Timestamp string

	// Err is the detailed cause of a rejection, wrapping one of the
	// package's sentinel errors. It is nil when authorized.
	Err error

	secret string
}

// Authorized reports whether the request passed every check.
func (r Result) Authorized() bool {
	return r.Reason == ReasonAuthorized
}

// ValidatorConfig configures request validation.
type ValidatorConfig struct {
	// Resolver looks up the secret for the access key id in the
	// Authorization header. Required.
	Resolver SecretResolver

	// Algorithm selects the HMAC hash. Defaults to AlgorithmSHA256.
	Algorithm Algorithm

	// Tolerance is the accepted distance between the request timestamp
	// and the current time, in either direction. Defaults to
	// DefaultTolerance.
	Tolerance time.Duration

	// RequiredHeaders lists custom headers that every client must include
	// in its signed header list.
	RequiredHeaders []string

	// TrustForwarded makes the validator sign over X-Forwarded-Host and
	// X-Replaced-Path when a proxy rewrote the request. The headers are
	// only honored when r.RemoteAddr is in TrustedProxies.
	TrustForwarded bool

	// TrustedProxies lists the IP addresses and CIDR ranges whose
	// forwarding headers are honored. When empty, DefaultTrustedProxies
	// is used.
	TrustedProxies []string

	// Observer receives one Event per validation. Optional.
	Observer Observer

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Validator checks inbound requests. It holds no per-request state and is
// safe for concurrent use.
type Validator struct {
	resolver       SecretResolver
	algorithm      Algorithm
	tolerance      int64
	required       []string
	trustForwarded bool
	proxies        *proxySet
	observer       Observer
	now            func() time.Time
}

// placeholderKey signs the message when the secret cannot be resolved so
// that unknown access keys take as long to reject as bad signatures.
var placeholderKey = make([]byte, 32)

// NewValidator returns a Validator for cfg. It fails with ErrNoResolver,
// ErrUnsupportedAlgorithm, ErrInvalidHeaderName or ErrInvalidProxy on bad
// configuration.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}

	alg := AlgorithmSHA256
	if cfg.Algorithm != "" {
		parsed, err := ParseAlgorithm(string(cfg.Algorithm))
		if err != nil {
			return nil, err
		}

		alg = parsed
	}

	if err := ValidateHeaderNames(cfg.RequiredHeaders); err != nil {
		return nil, err
	}

	var proxies *proxySet
	if cfg.TrustForwarded {
		entries := cfg.TrustedProxies
		if len(entries) == 0 {
			entries = DefaultTrustedProxies
		}

		ps, err := parseTrustedProxies(entries)
		if err != nil {
			return nil, err
		}

		proxies = ps
	}

	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Validator{
		resolver:       cfg.Resolver,
		algorithm:      alg,
		tolerance:      int64(tolerance / time.Second),
		required:       append([]string(nil), cfg.RequiredHeaders...),
		trustForwarded: cfg.TrustForwarded,
		proxies:        proxies,
		observer:       observer,
		now:            now,
	}, nil
}

// Algorithm returns the HMAC algorithm the validator verifies with.
func (v *Validator) Algorithm() Algorithm {
	return v.algorithm
}

// Validate runs the timestamp, header and signature checks against r.
// The request body is read at most once and is left readable for the
// next handler.
func (v *Validator) Validate(r *http.Request) Result {
	res := v.validate(r)

	event := Event{
		Reason:   res.Reason,
		AccessID: res.Authorization.ID,
		Method:   r.Method,
		Err:      res.Err,
	}

	if r.URL != nil {
		event.Path = r.URL.Path
	}

	v.observer.Observe(r.Context(), event)

	return res
}

func (v *Validator) validate(r *http.Request) Result {
	res := Result{Timestamp: r.Header.Get(HeaderTimestamp)}

	reject := func(reason Reason, err error) Result {
		res.Reason = reason
		res.Err = err

		return res
	}

	if res.Timestamp == "" {
		return reject(ReasonTimestampRequired, ErrTimestampRequired)
	}

	ts, err := strconv.ParseInt(res.Timestamp, 10, 64)
	if err != nil {
		return reject(ReasonTimestampRequired, fmt.Errorf("%w: %q is not a unix timestamp", ErrTimestampRequired, res.Timestamp))
	}

	now := v.now().Unix()

	switch {
	case ts > now+v.tolerance:
		return reject(ReasonTimestampTooFarInFuture, fmt.Errorf("%w: %d is %ds ahead", ErrTimestampTooFarInFuture, ts, ts-now))
	case ts < now-v.tolerance:
		return reject(ReasonTimestampTooFarInPast, fmt.Errorf("%w: %d is %ds behind", ErrTimestampTooFarInPast, ts, now-ts))
	}

	raw := r.Header.Get(HeaderAuthorization)
	if raw == "" {
		return reject(ReasonAuthorizationRequired, ErrAuthorizationRequired)
	}

	auth, err := ParseAuthorizationHeader(raw)
	if err != nil {
		return reject(ReasonAuthorizationInvalid, err)
	}

	res.Authorization = auth

	if auth.Signature == "" {
		return reject(ReasonAuthorizationInvalid, fmt.Errorf("%w: signature is required", ErrMalformedHeader))
	}

	for _, name := range v.required {
		if !containsFold(auth.Headers, name) {
			return reject(ReasonAuthorizationInvalid, fmt.Errorf("%w: header %q must be signed", ErrMalformedHeader, name))
		}
	}

	secret, secretErr := v.resolver.ResolveSecret(r.Context(), auth.ID)
	if secretErr == nil {
		_, secretErr = decodeSecret(secret)
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return reject(ReasonBodyUnreadable, err)
	}

	msg, err := NewRequestMessage(r, auth, MessageOptions{
		Body:           body,
		TrustForwarded: v.trustForwarded && v.proxies.contains(r.RemoteAddr),
	})

	if secretErr != nil {
		if err == nil {
			v.algorithm.mac(placeholderKey, msg.Bytes())
		}

		return reject(ReasonSecretUnavailable, fmt.Errorf("%w: %w", ErrSecretUnavailable, secretErr))
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCustomHeader):
			return reject(ReasonMissingCustomHeader, err)
		case errors.Is(err, ErrBodyDigestMismatch):
			return reject(ReasonBodyDigestMismatch, err)
		default:
			return reject(ReasonAuthorizationInvalid, err)
		}
	}

	if !v.algorithm.Verify(secret, msg.Bytes(), auth.Signature) {
		return reject(ReasonInvalidSignature, ErrInvalidSignature)
	}

	res.Reason = ReasonAuthorized
	res.secret = secret

	return res
}

func containsFold(list []string, name string) bool {
	for _, item := range list {
		if strings.EqualFold(item, name) {
			return true
		}
	}

	return false
}
