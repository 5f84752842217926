package hmacauth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenerateNonce returns a random UUID v4 string for use as a request
// nonce.
func GenerateNonce() string {
	return uuid.NewString()
}

// SignerConfig configures client-side request signing.
type SignerConfig struct {
	// Realm, AccessID and Secret identify the client. All three are
	// required; Secret is the base64 text shared with the server.
	Realm    string
	AccessID string
	Secret   string

	// Algorithm selects the HMAC hash. Defaults to AlgorithmSHA256.
	Algorithm Algorithm

	// CustomHeaders lists request headers whose values are signed. Every
	// request signed with this config must carry all of them.
	CustomHeaders []string

	// BodilessMethods lists request methods whose responses are not
	// expected to be signed. Defaults to DefaultBodilessMethods.
	BodilessMethods []string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Nonce returns a fresh nonce per request. Defaults to GenerateNonce.
	Nonce func() string
}

// Signer signs outbound requests. It is safe for concurrent use.
type Signer struct {
	realm    string
	accessID string
	secret   string
	alg      Algorithm
	headers  []string
	bodiless []string
	now      func() time.Time
	nonce    func() string
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.Realm == "" || cfg.AccessID == "" || cfg.Secret == "" {
		return nil, ErrNoCredentials
	}

	if _, err := decodeSecret(cfg.Secret); err != nil {
		return nil, err
	}

	alg := AlgorithmSHA256
	if cfg.Algorithm != "" {
		parsed, err := ParseAlgorithm(string(cfg.Algorithm))
		if err != nil {
			return nil, err
		}

		alg = parsed
	}

	if err := ValidateHeaderNames(cfg.CustomHeaders); err != nil {
		return nil, err
	}

	bodiless := cfg.BodilessMethods
	if bodiless == nil {
		bodiless = DefaultBodilessMethods
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	nonce := cfg.Nonce
	if nonce == nil {
		nonce = GenerateNonce
	}

	return &Signer{
		realm:    cfg.Realm,
		accessID: cfg.AccessID,
		secret:   cfg.Secret,
		alg:      alg,
		headers:  append([]string(nil), cfg.CustomHeaders...),
		bodiless: append([]string(nil), bodiless...),
		now:      now,
		nonce:    nonce,
	}, nil
}

// Sign signs r in place. It sets X-Authorization-Timestamp when absent,
// X-Authorization-Content-SHA256 when the body is non-empty and the header
// is absent, and finally the Authorization header. The body is left
// readable and GetBody replays it.
//
// The returned Session verifies the response to r.
func (s *Signer) Sign(r *http.Request) (Session, error) {
	if r.URL == nil {
		return Session{}, ErrInvalidURI
	}

	if r.Header == nil {
		r.Header = make(http.Header)
	}

	auth := AuthorizationHeader{
		Realm:   s.realm,
		ID:      s.accessID,
		Nonce:   s.nonce(),
		Version: Version,
		Headers: s.headers,
	}

	if !auth.Valid() {
		return Session{}, fmt.Errorf("%w: realm, id, nonce and version are required", ErrMalformedHeader)
	}

	if r.Header.Get(HeaderTimestamp) == "" {
		r.Header.Set(HeaderTimestamp, strconv.FormatInt(s.now().Unix(), 10))
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return Session{}, err
	}

	if body != nil {
		r.ContentLength = int64(len(body))
	}

	if len(body) > 0 && r.Header.Get(HeaderContentSHA256) == "" {
		r.Header.Set(HeaderContentSHA256, BodyDigest(body))
	}

	msg, err := NewRequestMessage(r, auth, MessageOptions{Body: body})
	if err != nil {
		return Session{}, err
	}

	sig, err := s.alg.Sign(s.secret, msg.Bytes())
	if err != nil {
		return Session{}, err
	}

	r.Header.Set(HeaderAuthorization, auth.withSignature(sig).String())

	return Session{
		Nonce:     auth.Nonce,
		Timestamp: msg.Timestamp,
		Secret:    s.secret,
		Algorithm: s.alg,
		Exempt:    isBodiless(s.bodiless, r.Method),
	}, nil
}
