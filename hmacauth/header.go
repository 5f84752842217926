package hmacauth

import (
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header names used by the protocol.
const (
	HeaderAuthorization       = "Authorization"
	HeaderTimestamp           = "X-Authorization-Timestamp"
	HeaderContentSHA256       = "X-Authorization-Content-SHA256"
	HeaderServerAuthorization = "X-Server-Authorization-HMAC-SHA256"
)

const (
	// Scheme is the first token of the Authorization header value.
	Scheme = "acquia-http-hmac"

	// Version is the protocol version written by Signer.
	Version = "2.0"
)

// AuthorizationHeader is the structured value of the Authorization header.
type AuthorizationHeader struct {
	Realm   string
	ID      string
	Nonce   string
	Version string

	// Headers lists the custom headers whose values are part of the signed
	// message, in the order the client sent them.
	Headers []string

	// Signature is empty until the message has been signed.
	Signature string
}

// Valid reports whether realm, id, nonce and version are all set. A header
// that is not valid must not be used to authenticate.
func (h AuthorizationHeader) Valid() bool {
	return h.Realm != "" && h.ID != "" && h.Nonce != "" && h.Version != ""
}

// ParseAuthorizationHeader parses an Authorization header value of the form
//
//	<scheme> realm="R",id="I",nonce="N",version="V"[,headers="H1;H2"][,signature="S"]
//
// The scheme token is discarded. Parameters are split on commas without
// honoring quotes, so values must not contain commas.
func ParseAuthorizationHeader(raw string) (AuthorizationHeader, error) {
	var h AuthorizationHeader

	_, params, ok := strings.Cut(raw, " ")
	if !ok {
		return h, fmt.Errorf("%w: missing scheme separator", ErrMalformedHeader)
	}

	for pair := range strings.SplitSeq(params, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return h, fmt.Errorf("%w: parameter %q has no value", ErrMalformedHeader, pair)
		}

		value = trimQuotes(value)

		switch strings.ToLower(key) {
		case "realm":
			h.Realm = value
		case "id":
			h.ID = value
		case "nonce":
			h.Nonce = value
		case "version":
			h.Version = value
		case "headers":
			h.Headers = splitHeaderList(value)
		case "signature":
			h.Signature = value
		}
	}

	if !h.Valid() {
		return h, fmt.Errorf("%w: realm, id, nonce and version are required", ErrMalformedHeader)
	}

	return h, nil
}

// String serializes the header with the scheme prefix. The headers and
// signature parameters are omitted when empty.
func (h AuthorizationHeader) String() string {
	var b strings.Builder

	b.WriteString(Scheme)
	b.WriteByte(' ')
	writeParam(&b, "realm", h.Realm)
	b.WriteByte(',')
	writeParam(&b, "id", h.ID)
	b.WriteByte(',')
	writeParam(&b, "nonce", h.Nonce)
	b.WriteByte(',')
	writeParam(&b, "version", h.Version)

	if len(h.Headers) > 0 {
		b.WriteByte(',')
		writeParam(&b, "headers", strings.Join(h.Headers, ";"))
	}

	if h.Signature != "" {
		b.WriteByte(',')
		writeParam(&b, "signature", h.Signature)
	}

	return b.String()
}

// writeParam writes key="value". Values are written verbatim.
func writeParam(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(value)
	b.WriteByte('"')
}

// withSignature returns a copy of h carrying sig.
func (h AuthorizationHeader) withSignature(sig string) AuthorizationHeader {
	h.Headers = append([]string(nil), h.Headers...)
	h.Signature = sig

	return h
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

func splitHeaderList(s string) []string {
	if s == "" {
		return nil
	}

	var names []string
	for name := range strings.SplitSeq(s, ";") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// ValidateHeaderNames checks that every configured custom header name is a
// valid HTTP field name that can be carried in the semicolon-separated
// headers parameter.
func ValidateHeaderNames(names []string) error {
	for _, name := range names {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("%w: %q", ErrInvalidHeaderName, name)
		}
	}

	return nil
}
