package hmacauth

import "net/http"

// TransportConfig configures a signing Transport.
type TransportConfig struct {
	// Signer signs every outgoing request. Required.
	Signer *Signer

	// SkipResponseVerification accepts responses without checking the
	// server signature.
	SkipResponseVerification bool
}

// Transport is an http.RoundTripper that signs outgoing requests and
// verifies the signature of the responses.
type Transport struct {
	base   http.RoundTripper
	config TransportConfig
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used.
func NewTransport(base *http.Transport, cfg TransportConfig) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{
		base:   rt,
		config: cfg,
	}
}

// RoundTrip signs a clone of req, sends it and verifies the response.
// When verification fails the response body is closed and only the error
// is returned.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.config.Signer == nil {
		return nil, ErrNoSigner
	}

	clone := req.Clone(req.Context())

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	session, err := t.config.Signer.Sign(clone)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(clone)
	if err != nil {
		return nil, err
	}

	if t.config.SkipResponseVerification {
		return resp, nil
	}

	if err := session.VerifyResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}
