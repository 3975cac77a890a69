// internal/middleware/security.go
//
// Security-header middleware for the outer mux.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  only when forceHTTPS is on
//   • Content-Security-Policy   –  self-only policy for the console pages
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set before next.ServeHTTP; once a handler writes its
//   status, later header changes are ignored by net/http.  Handlers may
//   still overwrite any of them.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security returns the header middleware.  HSTS is only sent when the
// server forces HTTPS, so a plain-HTTP dev box does not pin browsers.
func Security(forceHTTPS bool) func(http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains; preload"
		csp  = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
			"base-uri 'self'; frame-ancestors 'none'"
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if forceHTTPS {
				h.Set("Strict-Transport-Security", hsts)
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			next.ServeHTTP(w, r)
		})
	}
}
