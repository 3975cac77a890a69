// internal/config/model.go
//
// Typed configuration model for adminkit.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `ADMINKIT_`-prefixed environment overrides – highest precedence.
//
// Secret strings (`database.password`, `security.jwt_secret`) may hold a
// `vault:<mount>/<path>#<key>` reference; cmd/web resolves those through
// internal/vault before the values reach any component.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations are written as Go duration strings ("5m", "500ms").
//   • The `Paths.Root` field is filled at runtime; YAML must not set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  Debug exposes real error messages in
// 500 envelopes.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	Debug      bool   `koanf:"debug"`
	TrustProxy bool   `koanf:"trust_proxy"`
}

//
// Database section
//

// Database holds the DSN template and its secret.  The DSN carries one %s
// verb for the password so credentials stay out of flat files.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
}

//
// Pool section
//

// Pool sizes the checkout pool in internal/pool.
type Pool struct {
	MinConns       int           `koanf:"min_conns"       validate:"gte=0"`
	MaxConns       int           `koanf:"max_conns"       validate:"gte=1,gtefield=MinConns"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"    validate:"gt=0"`
	AcquireTimeout time.Duration `koanf:"acquire_timeout" validate:"gte=0"`
}

//
// Security section
//

// Security groups token, CSRF, and path-policy settings.
type Security struct {
	JWTSecret      string        `koanf:"jwt_secret"       validate:"required"`
	JWTTTL         time.Duration `koanf:"jwt_ttl"          validate:"gt=0"`
	AuthWhitelist  []string      `koanf:"auth_whitelist"`
	RBACExempt     []string      `koanf:"rbac_exempt"`
	SensitiveKeys  []string      `koanf:"sensitive_fields"`
	PlainPaths     []string      `koanf:"desensitize_skip"`
	CSRFCookieName string        `koanf:"csrf_cookie"      validate:"required"`
}

//
// Limits section
//

// Limits configures the rate limiter, throttle, and debounce windows.
type Limits struct {
	RatePerMinute int           `koanf:"rate_per_minute" validate:"gte=1"`
	Throttle      time.Duration `koanf:"throttle"        validate:"gt=0"`
	Debounce      time.Duration `koanf:"debounce"        validate:"gt=0"`
}

//
// Log and GeoIP sections
//

// Log sets the minimum zap level ("debug", "info", …).
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	Path string `koanf:"path"`
}

//
// Paths section
//

// Paths.Root is resolved at runtime.  Static is relative to Root unless
// absolute.
type Paths struct {
	Root   string `koanf:"-"`
	Static string `koanf:"static" validate:"required"`
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Pool     Pool     `koanf:"pool"`
	Security Security `koanf:"security"`
	Limits   Limits   `koanf:"limits"`
	Log      Log      `koanf:"log"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"paths"`
}
