package hmacauth

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// SignResponse signs body with the nonce and timestamp of the request it
// answers and sets the X-Server-Authorization-HMAC-SHA256 header on h.
func SignResponse(h http.Header, alg Algorithm, secret, nonce, timestamp string, body []byte) error {
	sig, err := alg.Sign(secret, ResponseMessage(nonce, timestamp, body))
	if err != nil {
		return err
	}

	h.Set(HeaderServerAuthorization, sig)

	return nil
}

// Session carries what a client needs to verify the response to a request
// it signed.
type Session struct {
	Nonce     string
	Timestamp string
	Secret    string
	Algorithm Algorithm

	// Exempt is set when the request method is one whose responses carry
	// no body and therefore no response signature.
	Exempt bool
}

// VerifyResponse checks the server signature of resp. The response body is
// read and replaced so the caller can still consume it. A response that
// fails verification must not be trusted.
func (s Session) VerifyResponse(resp *http.Response) error {
	if s.Exempt {
		return nil
	}

	sig := resp.Header.Get(HeaderServerAuthorization)
	if sig == "" {
		return ErrResponseSignatureMissing
	}

	body, err := readAndRestoreResponseBody(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResponseAuthenticationFailed, err)
	}

	if !s.Algorithm.Verify(s.Secret, ResponseMessage(s.Nonce, s.Timestamp, body), sig) {
		return ErrResponseAuthenticationFailed
	}

	return nil
}

// DefaultBodilessMethods are the request methods whose responses are not
// signed.
var DefaultBodilessMethods = []string{http.MethodHead}

func isBodiless(methods []string, method string) bool {
	return slices.ContainsFunc(methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}
