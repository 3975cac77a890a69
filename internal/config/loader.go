// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `ADMINKIT_`, where `__` maps to “.”
     (e.g., `ADMINKIT_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
defaulted, validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO span: final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves ADMINKIT_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("ADMINKIT_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, validates, and caches Config.
func Load() (*Config, error) {
	return LoadFrom(rootDir())
}

// LoadFrom is Load with an explicit root directory.  Tests use it with a
// temp dir.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: ADMINKIT_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("ADMINKIT_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, "ADMINKIT_"), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.Paths.Root = root
	if !filepath.IsAbs(cfg.Paths.Static) {
		cfg.Paths.Static = filepath.Join(root, cfg.Paths.Static)
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"debug", cfg.HTTP.Debug,
		"pool_max", cfg.Pool.MaxConns,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── defaults ────────────────────────────────────*/

// applyDefaults fills zero values with the legacy tunables.
func applyDefaults(c *Config) {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = "127.0.0.1:8080"
	}
	if c.Pool.MaxConns == 0 {
		c.Pool.MinConns, c.Pool.MaxConns = 2, 10
	}
	if c.Pool.IdleTimeout == 0 {
		c.Pool.IdleTimeout = 5 * time.Minute
	}
	if c.Pool.AcquireTimeout == 0 {
		c.Pool.AcquireTimeout = 5 * time.Second
	}
	if c.Security.JWTTTL == 0 {
		c.Security.JWTTTL = 24 * time.Hour
	}
	if c.Security.CSRFCookieName == "" {
		c.Security.CSRFCookieName = "X-CSRF-Token"
	}
	if c.Security.AuthWhitelist == nil {
		c.Security.AuthWhitelist = []string{"/api/user/login", "/static/*", "/", "/pages/login.html"}
	}
	if c.Security.RBACExempt == nil {
		c.Security.RBACExempt = []string{
			"/api/user/info", "/api/user/change-pwd", "/api/menu/list",
			"/api/notify/list", "/api/notify/unread-count", "/api/notify/read/*",
			"/api/notify/read-all", "/api/dashboard/stat",
		}
	}
	if c.Security.SensitiveKeys == nil {
		c.Security.SensitiveKeys = []string{"phone", "email"}
	}
	if c.Security.PlainPaths == nil {
		c.Security.PlainPaths = []string{"/api/user/login", "/api/user/info", "/api/user/refresh"}
	}
	if c.Limits.RatePerMinute == 0 {
		c.Limits.RatePerMinute = 100
	}
	if c.Limits.Throttle == 0 {
		c.Limits.Throttle = time.Second
	}
	if c.Limits.Debounce == 0 {
		c.Limits.Debounce = 500 * time.Millisecond
	}
	if c.Paths.Static == "" {
		c.Paths.Static = "static"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
