package hmacauth

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"net/http"
)

// BodyDigest returns the base64 SHA-256 digest of body, the value carried
// by the X-Authorization-Content-SHA256 header.
func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)

	return base64.StdEncoding.EncodeToString(sum[:])
}

func digestMatches(body []byte, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(BodyDigest(body)), []byte(digest)) == 1
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again. GetBody is reset so that
// redirects and retries replay the same bytes.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()

	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	return body, nil
}

// readAndRestoreResponseBody is the response counterpart of
// readAndRestoreBody.
func readAndRestoreResponseBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()

	if err != nil {
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
