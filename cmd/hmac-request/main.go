// Command hmac-request sends one request signed with the acquia-http-hmac
// scheme and prints the response after verifying its signature.
//
//	hmac-request -realm Pipet -id client -secret-env HMAC_SECRET \
//	    -X POST -H 'Content-Type: application/json' -d '{"a":1}' \
//	    https://example.com/resource
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vitalvas/httphmac/hmacauth"
)

type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	*h = append(*h, v)
	return nil
}

type options struct {
	realm      string
	accessID   string
	secret     string
	algorithm  string
	method     string
	data       string
	headers    headerFlags
	signed     string
	skipVerify bool
	timeout    time.Duration
	include    bool
	target     string
}

func main() {
	var opts options
	var secretEnv string

	flag.StringVar(&opts.realm, "realm", "", "authentication realm")
	flag.StringVar(&opts.accessID, "id", "", "access key id")
	flag.StringVar(&opts.secret, "secret", "", "base64 secret")
	flag.StringVar(&secretEnv, "secret-env", "HMAC_SECRET", "environment variable holding the secret when -secret is empty")
	flag.StringVar(&opts.algorithm, "algorithm", string(hmacauth.AlgorithmSHA256), "SHA1, SHA256, SHA384 or SHA512")
	flag.StringVar(&opts.method, "X", http.MethodGet, "request method")
	flag.StringVar(&opts.data, "d", "", "request body")
	flag.Var(&opts.headers, "H", "request header as 'Name: value', repeatable")
	flag.StringVar(&opts.signed, "signed-headers", "", "semicolon separated header names to sign")
	flag.BoolVar(&opts.skipVerify, "skip-verify", false, "do not verify the response signature")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flag.BoolVar(&opts.include, "i", false, "print response status and headers")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hmac-request [flags] URL")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts.target = flag.Arg(0)

	if opts.secret == "" {
		opts.secret = os.Getenv(secretEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	var signed []string
	if opts.signed != "" {
		signed = strings.Split(opts.signed, ";")
	}

	signer, err := hmacauth.NewSigner(hmacauth.SignerConfig{
		Realm:         opts.realm,
		AccessID:      opts.accessID,
		Secret:        opts.secret,
		Algorithm:     hmacauth.Algorithm(opts.algorithm),
		CustomHeaders: signed,
	})
	if err != nil {
		return errors.Wrap(err, "configure signer")
	}

	req, err := newRequest(ctx, opts)
	if err != nil {
		return err
	}

	client := &http.Client{
		Transport: hmacauth.NewTransport(nil, hmacauth.TransportConfig{
			Signer:                   signer,
			SkipResponseVerification: opts.skipVerify,
		}),
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	if opts.include {
		fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
		if err := resp.Header.Write(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, "read response")
	}

	return nil
}

func newRequest(ctx context.Context, opts options) (*http.Request, error) {
	var body io.Reader
	if opts.data != "" {
		body = strings.NewReader(opts.data)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(opts.method), opts.target, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, errors.Errorf("invalid header %q", h)
		}

		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if opts.data != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
