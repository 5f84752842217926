package hmacauth

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Headers consulted when the request passed through a path-rewriting
// proxy. A Validator honors them only with TrustForwarded set and a peer
// address in its trusted proxies.
const (
	headerForwardedHost = "X-Forwarded-Host"
	headerReplacedPath  = "X-Replaced-Path"
)

// RequestMessage is a snapshot of everything that goes into the signed
// request message. It is built from a request by NewRequestMessage and is
// never modified afterwards.
type RequestMessage struct {
	Method        string
	Host          string
	Path          string
	RawQuery      string
	Authorization AuthorizationHeader

	// CustomHeaders maps lower-cased header names to their values.
	CustomHeaders map[string]string

	Timestamp string

	// ContentType and BodyDigest are set only when the request has a body
	// and a matching X-Authorization-Content-SHA256 header.
	ContentType string
	BodyDigest  string
}

// MessageOptions controls how a request is canonicalized.
type MessageOptions struct {
	// Body is the request body. The caller reads it once and passes it in
	// so the request can still be replayed afterwards.
	Body []byte

	// TrustForwarded replaces the host and path with X-Forwarded-Host and
	// X-Replaced-Path when both are present.
	TrustForwarded bool
}

// NewRequestMessage captures the signed parts of r. It fails with
// ErrMissingCustomHeader when a header named in auth.Headers is absent and
// with ErrBodyDigestMismatch when the body digest header is present but
// wrong.
func NewRequestMessage(r *http.Request, auth AuthorizationHeader, opts MessageOptions) (RequestMessage, error) {
	if r.URL == nil {
		return RequestMessage{}, ErrInvalidURI
	}

	msg := RequestMessage{
		Method:        strings.ToUpper(r.Method),
		Host:          requestHost(r),
		Path:          requestPath(r),
		RawQuery:      r.URL.RawQuery,
		Authorization: auth,
		Timestamp:     r.Header.Get(HeaderTimestamp),
	}

	if opts.TrustForwarded {
		forwardedHost := r.Header.Get(headerForwardedHost)
		replacedPath := r.Header.Get(headerReplacedPath)

		if forwardedHost != "" && replacedPath != "" {
			first, _, _ := strings.Cut(forwardedHost, ",")
			msg.Host = strings.TrimSpace(first)
			msg.Path = replacedPath
		}
	}

	if len(auth.Headers) > 0 {
		msg.CustomHeaders = make(map[string]string, len(auth.Headers))

		for _, name := range auth.Headers {
			value, ok := headerValue(r, name)
			if !ok {
				return RequestMessage{}, fmt.Errorf("%w: %q", ErrMissingCustomHeader, name)
			}

			msg.CustomHeaders[strings.ToLower(name)] = value
		}
	}

	digest := r.Header.Get(HeaderContentSHA256)
	if len(opts.Body) > 0 && digest != "" {
		if !digestMatches(opts.Body, digest) {
			return RequestMessage{}, ErrBodyDigestMismatch
		}

		msg.ContentType = r.Header.Get("Content-Type")
		msg.BodyDigest = digest
	}

	return msg, nil
}

// String renders the message exactly as it is signed.
func (m RequestMessage) String() string {
	var b strings.Builder

	b.WriteString(m.Method)
	b.WriteByte('\n')
	b.WriteString(strings.ToLower(m.Host))
	b.WriteByte('\n')
	b.WriteString(m.Path)
	b.WriteByte('\n')
	b.WriteString(m.RawQuery)
	b.WriteByte('\n')

	fmt.Fprintf(&b, "id=%s&nonce=%s&realm=%s&version=%s\n",
		escape(m.Authorization.ID),
		escape(m.Authorization.Nonce),
		escape(m.Authorization.Realm),
		escape(m.Authorization.Version),
	)

	names := make([]string, 0, len(m.CustomHeaders))
	for name := range m.CustomHeaders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(m.CustomHeaders[name])
		b.WriteByte('\n')
	}

	b.WriteString(m.Timestamp)

	if m.BodyDigest != "" {
		b.WriteByte('\n')
		b.WriteString(strings.ToLower(m.ContentType))
		b.WriteByte('\n')
		b.WriteString(m.BodyDigest)
	}

	return b.String()
}

// Bytes returns String as a byte slice.
func (m RequestMessage) Bytes() []byte {
	return []byte(m.String())
}

// ResponseMessage renders the signed response message: nonce, timestamp
// and body on separate lines.
func ResponseMessage(nonce, timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(nonce)+len(timestamp)+len(body)+2)
	msg = append(msg, nonce...)
	msg = append(msg, '\n')
	msg = append(msg, timestamp...)
	msg = append(msg, '\n')
	msg = append(msg, body...)

	return msg
}

// escapeFixups turns url.QueryEscape output into the form encoding used by
// the other protocol implementations: space is %20, '*' stays literal and
// '~' is escaped.
var escapeFixups = strings.NewReplacer("+", "%20", "%2A", "*", "~", "%7E")

// escape percent-encodes a value of the signed id/nonce/realm/version line.
func escape(s string) string {
	return escapeFixups.Replace(url.QueryEscape(s))
}

// requestHost returns the Host the request was sent to, including the port
// when present. net/http moves the Host header into Request.Host.
func requestHost(r *http.Request) string {
	if r.Host != "" {
		return r.Host
	}

	return r.URL.Host
}

// requestPath returns the path exactly as it appeared in the request line
// for inbound requests, and the escaped URL path for outbound ones.
func requestPath(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		path, _, _ := strings.Cut(r.RequestURI, "?")
		return path
	}

	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	return path
}

// headerValue returns the first value of the named header. Host and
// Content-Length fall back to the request fields net/http writes them from
// on outbound requests.
func headerValue(r *http.Request, name string) (string, bool) {
	if values := r.Header.Values(name); len(values) > 0 {
		return values[0], true
	}

	switch {
	case strings.EqualFold(name, "host"):
		if host := requestHost(r); host != "" {
			return host, true
		}
	case strings.EqualFold(name, "content-length"):
		if r.ContentLength > 0 {
			return strconv.FormatInt(r.ContentLength, 10), true
		}
	}

	return "", false
}
