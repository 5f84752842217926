// Package hmacauth implements the acquia-http-hmac 2.0 request and response
// signing protocol.
//
// A client and a server that share a base64 secret prove on every request,
// and on every response, that the message originates from a holder of the
// secret and was not altered in transit. Requests are bound to a timestamp
// that must lie within a tolerance window of the server clock.
//
// # Supported Algorithms
//
// HMAC with SHA1, SHA256, SHA384 or SHA512. SHA256 is the default and the
// only algorithm most peers support.
//
// # Signing Requests
//
// A Signer adds X-Authorization-Timestamp, X-Authorization-Content-SHA256
// (for non-empty bodies) and the Authorization header:
//
//	signer, err := hmacauth.NewSigner(hmacauth.SignerConfig{
//	    Realm:    "Plexus",
//	    AccessID: "f0d16792-cdc9-4585-a5fd-bae3d898d8c5",
//	    Secret:   secret,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := signer.Sign(req)
//
// The returned Session verifies the server signature of the response:
//
//	err = session.VerifyResponse(resp)
//
// # Client Transport
//
// NewTransport wraps an *http.Transport and signs every request and
// verifies every response. Pass nil for a clone of http.DefaultTransport:
//
//	client := &http.Client{
//	    Transport: hmacauth.NewTransport(nil, hmacauth.TransportConfig{
//	        Signer: signer,
//	    }),
//	}
//
// # Validating Requests
//
// A Validator resolves the secret for the access key id through a
// SecretResolver and returns a Result with a Reason for every outcome:
//
//	v, err := hmacauth.NewValidator(hmacauth.ValidatorConfig{
//	    Resolver: resolver,
//	})
//
//	res := v.Validate(req)
//	if !res.Authorized() {
//	    // res.Reason, res.Err
//	}
//
// # Server Middleware
//
// Middleware returns a mux.MiddlewareFunc for gorilla/mux routers. It
// rejects unauthenticated requests with 401, exposes the caller through
// AuthInfoFromContext and signs the responses:
//
//	mw, err := hmacauth.Middleware(hmacauth.MiddlewareConfig{
//	    Validate: hmacauth.ValidatorConfig{
//	        Resolver: resolver,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
package hmacauth
