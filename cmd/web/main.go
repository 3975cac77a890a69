// cmd/web/main.go
//
// adminkit – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load configuration (.env → conf/global.yaml → ADMINKIT_ env).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Resolve vault: references for the database password and the JWT
//     secret.  Vault is only contacted when a reference is present.
//
//  4. Open MySQL, wrap it in the checkout pool, and build the ORM store.
//
//  5. Mount every registered component onto the API router.
//
//  6. Build the middleware chain: rate limit, CSRF, auth + RBAC, throttle,
//     debounce, and the desensitizing finalizer.
//
//  7. Serve through chi.  Outer middleware stamps a request ID, trusts
//     proxy headers when configured, adds security headers, redirects to
//     HTTPS when forced, and records request info.  /metrics and /healthz
//     are mounted beside the dispatcher, which takes everything else.
//
// SIGINT and SIGTERM trigger a graceful shutdown.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/acl"
	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/config"
	"github.com/yanizio/adminkit/internal/database"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/logger"
	"github.com/yanizio/adminkit/internal/middleware"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/pool"
	"github.com/yanizio/adminkit/internal/requestinfo"
	"github.com/yanizio/adminkit/internal/router"
	"github.com/yanizio/adminkit/internal/server"
	"github.com/yanizio/adminkit/internal/vault"

	_ "github.com/yanizio/adminkit/components/dashboard"
	_ "github.com/yanizio/adminkit/components/menu"
	_ "github.com/yanizio/adminkit/components/notify"
	_ "github.com/yanizio/adminkit/components/permission"
	_ "github.com/yanizio/adminkit/components/role"
	_ "github.com/yanizio/adminkit/components/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, logger.IsTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logOut.Errorw("adminkit stopped", "err", err)
		_ = logOut.Sync()
		os.Exit(1)
	}
	logOut.Info("adminkit stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	//
	// ── 1.  Secrets ─────────────────────────────────────────────────────
	//
	dbPass, jwtSecret, err := resolveSecrets(ctx, cfg)
	if err != nil {
		return err
	}

	//
	// ── 2.  Database, pool, and store ───────────────────────────────────
	//
	db, err := database.Open(ctx, database.DSN(cfg.Database.DSN, dbPass), cfg.Pool.MaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	zap.L().Info("database online")

	conns, err := pool.New(ctx, pool.FromDB(db), pool.Options{
		Min:            cfg.Pool.MinConns,
		Max:            cfg.Pool.MaxConns,
		IdleTimeout:    cfg.Pool.IdleTimeout,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	})
	if err != nil {
		return fmt.Errorf("connection pool: %w", err)
	}
	defer func() {
		if err := conns.Shutdown(); err != nil {
			zap.L().Warn("pool shutdown", zap.Error(err))
		}
	}()
	go conns.Run(ctx)

	odb := orm.NewDB(conns, time.Now)
	store := entity.NewStore(odb)
	perms := acl.NewStore(odb, acl.CacheTTL, time.Now)
	signer := auth.NewSigner(jwtSecret, cfg.Security.JWTTTL, time.Now)

	//
	// ── 3.  Components ──────────────────────────────────────────────────
	//
	routes := router.New()
	deps := component.Deps{Store: store, ACL: perms, Tokens: signer, Now: time.Now}
	if err := component.Mount(routes, deps); err != nil {
		return err
	}
	for _, rt := range routes.Routes() {
		zap.L().Debug("route", zap.String("method", rt.Method), zap.String("template", rt.Template))
	}
	zap.L().Info("components mounted", zap.Int("routes", len(routes.Routes())))

	//
	// ── 4.  Middleware chain ────────────────────────────────────────────
	//
	sec := cfg.Security
	csrf := middleware.NewCSRFStore(sec.CSRFCookieName, nil)
	go csrf.Run(ctx)

	chain := middleware.Chain{
		middleware.NewRateLimiter(cfg.Limits.RatePerMinute, nil),
		csrf,
		middleware.NewAuth(signer, perms, perms, sec.AuthWhitelist, sec.RBACExempt),
		middleware.NewThrottle(cfg.Limits.Throttle, nil),
		middleware.NewDebounce(cfg.Limits.Debounce, nil),
		middleware.NewDesensitizer(sec.SensitiveKeys, sec.PlainPaths),
	}

	//
	// ── 5.  GeoIP (optional) ────────────────────────────────────────────
	//
	if cfg.GeoIP.Path != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.Path); err != nil {
			zap.L().Warn("geoip disabled", zap.String("path", cfg.GeoIP.Path), zap.Error(err))
		}
		defer func() { _ = requestinfo.CloseGeo() }()
	}

	//
	// ── 6.  HTTP surface ────────────────────────────────────────────────
	//
	dispatcher := server.NewDispatcher(routes, chain, server.Options{
		StaticDir:  cfg.Paths.Static,
		CSRFCookie: sec.CSRFCookieName,
		TrustProxy: cfg.HTTP.TrustProxy,
		Debug:      cfg.HTTP.Debug,
	})

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	if cfg.HTTP.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(middleware.Security(cfg.HTTP.ForceHTTPS))
	if cfg.HTTP.ForceHTTPS {
		mux.Use(middleware.ForceHTTPS(cfg.HTTP.TrustProxy))
	}
	mux.Use(requestinfo.Enrich(cfg.HTTP.TrustProxy))

	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/*", dispatcher)

	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, mux))
}

// resolveSecrets swaps vault: references for their values.  Plain values
// pass through without a Vault client.
func resolveSecrets(ctx context.Context, cfg *config.Config) (dbPass, jwtSecret string, err error) {
	dbPass, jwtSecret = cfg.Database.Password, cfg.Security.JWTSecret
	if !vault.IsRef(dbPass) && !vault.IsRef(jwtSecret) {
		return dbPass, jwtSecret, nil
	}

	vc, err := vault.New(ctx)
	if err != nil {
		return "", "", fmt.Errorf("vault: %w", err)
	}
	if dbPass, err = vc.Resolve(ctx, dbPass); err != nil {
		return "", "", fmt.Errorf("resolve database.password: %w", err)
	}
	if jwtSecret, err = vc.Resolve(ctx, jwtSecret); err != nil {
		return "", "", fmt.Errorf("resolve security.jwt_secret: %w", err)
	}
	zap.L().Info("secrets resolved from vault")
	return dbPass, jwtSecret, nil
}
