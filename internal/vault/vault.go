// internal/vault/vault.go
//
// Boot-time secret resolution through HashiCorp Vault.
//
// Context
// -------
// Config values written as `vault:<mount>/<path>#<key>` name one key of a
// KV-v2 secret.  cmd/web swaps every such reference for its value before
// the database or the token signer sees it; any other value passes through
// untouched, so a development box can keep plain secrets in conf/.env.
//
// Secrets are read once at start-up.  A Client fetches each secret path at
// most once, so `database.password` and `security.jwt_secret` stored under
// one path cost a single round-trip.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token with read access to the referenced paths.
//
// Notes
// -----
// • No token renewal: the client is discarded once boot completes.
// • Oxford commas, two spaces after periods, no m-dash.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a config value as a Vault reference.
const RefPrefix = "vault:"

// ErrBadRef is returned for references that lack a path or key.
var ErrBadRef = errors.New("vault: reference must look like vault:<mount>/<path>#<key>")

// IsRef reports whether v is a Vault reference.
func IsRef(v string) bool { return strings.HasPrefix(v, RefPrefix) }

// ParseRef splits "vault:secret/adminkit/db#password" into
// ("secret/adminkit/db", "password").
func ParseRef(v string) (path, key string, err error) {
	if !IsRef(v) {
		return "", "", ErrBadRef
	}
	path, key, ok := strings.Cut(strings.TrimPrefix(v, RefPrefix), "#")
	if !ok || key == "" || !strings.Contains(path, "/") {
		return "", "", ErrBadRef
	}
	return path, key, nil
}

// Client resolves references.  Safe for concurrent use.
type Client struct {
	api *vault.Client

	mu      sync.Mutex
	secrets map[string]map[string]any // secret path → KV data
}

// New builds a client from VAULT_ADDR and VAULT_TOKEN.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}
	zap.L().Info("vault client ready", zap.String("addr", api.Address()))
	return &Client{api: api, secrets: map[string]map[string]any{}}, nil
}

// Resolve returns v unchanged unless it is a reference, in which case the
// referenced value is fetched.
func (c *Client) Resolve(ctx context.Context, v string) (string, error) {
	if !IsRef(v) {
		return v, nil
	}
	path, key, err := ParseRef(v)
	if err != nil {
		return "", err
	}
	data, err := c.secret(ctx, path)
	if err != nil {
		return "", err
	}
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, path)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", path, key)
	}
	return s, nil
}

func (c *Client) secret(ctx context.Context, path string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.secrets[path]; ok {
		return data, nil
	}

	mount, rel := splitMount(path)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("vault get %s: %w", path, err)
	}
	c.secrets[path] = sec.Data
	zap.L().Debug("vault secret read", zap.String("path", path), zap.Int("keys", len(sec.Data)))
	return sec.Data, nil
}

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}
