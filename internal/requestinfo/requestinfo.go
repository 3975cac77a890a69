//
//  internal/requestinfo/requestinfo.go
//
//  Per-request client metadata: user-agent fingerprint, client IP, and
//  best-effort geolocation.  Info values are inert, so they are safe to
//  log or JSON-encode.  The access log and the login audit line read them.
//
//  Dependencies
//  • github.com/avct/uasurfer           (UA parsing)
//  • github.com/oschwald/geoip2-golang  (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// Info is attached to the request context by Enrich.
type Info struct {
	IP        string    `json:"ip"`
	Country   string    `json:"country,omitempty"`
	City      string    `json:"city,omitempty"`
	Browser   string    `json:"browser"`
	Version   string    `json:"version,omitempty"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	IsBot     bool      `json:"is_bot"`
	Timestamp time.Time `json:"ts"`
}

// geoReader is optional; lookups are skipped while it is nil.
var geoReader atomic.Pointer[geoip2.Reader]

// InitGeo opens a GeoLite2-City database.  An empty path disables lookups.
func InitGeo(path string) error {
	if path == "" {
		return nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return fmt.Errorf("requestinfo: open geoip db: %w", err)
	}
	geoReader.Store(r)
	return nil
}

// CloseGeo releases the GeoIP database, if open.
func CloseGeo() error {
	if r := geoReader.Swap(nil); r != nil {
		return r.Close()
	}
	return nil
}

type ctxKey struct{}

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// WithInfo stores info on ctx.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// ClientIP returns the caller's address.  Forwarding headers are only
// honoured when trustProxy is set; otherwise any client could spoof them
// past the rate limiter.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
					return ip.String()
				}
			}
		}
		if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
			if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
				return ip.String()
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ParseUA fills the user-agent half of Info.
func ParseUA(raw string) Info {
	ua := uasurfer.Parse(raw)
	info := Info{
		Browser: strings.TrimPrefix(ua.Browser.Name.String(), "Browser"),
		Version: versionString(ua.Browser.Version),
		OS:      strings.TrimPrefix(ua.OS.Name.String(), "OS"),
		IsBot:   ua.IsBot(),
	}
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		info.Device = "Desktop"
	case uasurfer.DeviceTablet:
		info.Device = "Tablet"
	case uasurfer.DevicePhone, uasurfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// versionString renders 17.0.0 as "17", 17.3.0 as "17.3", and 17.3.1 as
// "17.3.1".
func versionString(v uasurfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(v.Major)
}

func lookupGeo(info *Info) {
	r := geoReader.Load()
	ip := net.ParseIP(info.IP)
	if r == nil || ip == nil {
		return
	}
	rec, err := r.City(ip)
	if err != nil {
		return
	}
	info.Country = rec.Country.IsoCode
	info.City = rec.City.Names["en"]
}
