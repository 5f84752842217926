// Package muxhandlers provides the supporting gorilla/mux middleware that
// runs around the HMAC authentication middleware in a server stack.
//
// # Recovery
//
// RecoveryMiddleware turns a panic into a 500 response. Headers listed in
// StripHeaders are removed first so a partial response never leaves with
// a response signature attached.
//
//	r.Use(muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
//	    StripHeaders: []string{hmacauth.HeaderServerAuthorization},
//	}))
//
// # Request ID
//
// RequestIDMiddleware assigns every request an ID that is echoed in the
// response and available through RequestIDFromContext.
//
// # Server
//
// ServerMiddleware names the serving instance in X-Server-Hostname.
//
// # Cache Control
//
// CacheControlMiddleware sets Cache-Control and Expires by response
// Content-Type. A signed response is bound to one request nonce, so the
// signed routes of a server force no-store:
//
//	mw, err := muxhandlers.CacheControlMiddleware(muxhandlers.CacheControlConfig{
//	    DefaultValue:   "no-store",
//	    DefaultExpires: -1,
//	    Override:       true,
//	})
//
// # Request Size Limit
//
// RequestSizeLimitMiddleware caps the request body so that the
// authentication middleware never buffers more than MaxBytes.
//
//	mw, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
//	    MaxBytes: 1 << 20,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r.Use(mw)
package muxhandlers
