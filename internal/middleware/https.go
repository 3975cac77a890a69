package middleware

import (
	"net"
	"net/http"
)

// ForceHTTPS wraps h.  A plain-HTTP request for any host but localhost gets
// a 308 Permanent Redirect to the HTTPS version of the same URL.  Behind a
// TLS-terminating proxy (trustProxy) the X-Forwarded-Proto header decides
// what counts as plain HTTP.
func ForceHTTPS(trustProxy bool) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secure := r.TLS != nil || (trustProxy && r.Header.Get("X-Forwarded-Proto") == "https")
			if secure || isLocalHost(r.Host) {
				h.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusPermanentRedirect)
		})
	}
}

func isLocalHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
