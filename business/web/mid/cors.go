package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/ledger/foundation/web"
)

// OriginAllowed reports whether the origin is in the allowed set. The
// entry "*" allows every origin.
func OriginAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Cors sets the Cross-Origin Resource Sharing headers for requests that
// carry an allowed Origin. A request from any other origin gets no CORS
// headers and the browser refuses the response. An empty set disables CORS.
func Cors(allowed []string) web.Middleware {
	wildcard := slices.Contains(allowed, "*")

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			if origin != "" && OriginAllowed(allowed, origin) {
				allowOrigin := origin
				if wildcard {
					allowOrigin = "*"
				}

				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// The answer depends on the Origin, caches must key on it.
			w.Header().Add("Vary", "Origin")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
