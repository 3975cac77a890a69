// internal/requestinfo/middleware.go
//
// HTTP middleware that attaches *Info to each request.
//
/*
Context
--------
Mounted on the outer chi mux, ahead of the API dispatcher.  For every
request it resolves the client IP (see ClientIP), parses the User-Agent,
performs an optional GeoLite2 lookup, and stores the result under an
unexported context key.

Instrumentation
---------------
A DEBUG span per request carries ip, country, browser, device, and bot.

Notes
-----
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Enrich returns the middleware.  trustProxy mirrors http.trust_proxy.
func Enrich(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := ParseUA(r.UserAgent())
			info.IP = ClientIP(r, trustProxy)
			info.Timestamp = time.Now().UTC()
			lookupGeo(&info)

			zap.S().Debugw("request info",
				"ip", info.IP,
				"country", info.Country,
				"browser", info.Browser,
				"device", info.Device,
				"bot", info.IsBot,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), &info)))
		})
	}
}
