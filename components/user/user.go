// components/user/user.go
//
// User accounts: login, profile, and CRUD.
//
// Context
// -------
// Routes
//
//	POST   /api/user/login        → token plus masked profile
//	GET    /api/user/info         → caller's profile with role details
//	POST   /api/user/add          → create (bcrypt-hashed password)
//	GET    /api/user/list         → paginated, optional username keyword
//	PUT    /api/user/edit/{id}    → partial update
//	DELETE /api/user/delete/{id}  → refused for super-admin accounts
//	POST   /api/user/change-pwd   → caller changes own password
//
// Login and info skip the desensitize finalizer, so they mask phone and
// email themselves.  A failed login never says whether the username exists.
//
// Notes
// -----
//   • Every login attempt is logged with the caller's IP, browser, and OS
//     from requestinfo.
//   • Oxford commas, two spaces after periods.
package user

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/middleware"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/requestinfo"
	"github.com/yanizio/adminkit/internal/web"
)

// Compile-time assertion.
var _ component.Component = (*Component)(nil)

// Component serves /api/user/*.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

// Name returns the canonical component key.
func (c *Component) Name() string { return "user" }

// Init keeps the shared store and token issuer.
func (c *Component) Init(d component.Deps) error {
	if d.Store == nil || d.Tokens == nil {
		return errors.New("user: store and token issuer are required")
	}
	c.deps = d
	return nil
}

// Routes registers the user endpoints.
func (c *Component) Routes(r component.Registrar) error {
	for _, rt := range []struct {
		method, path string
		h            web.Handler
	}{
		{"POST", "/api/user/login", c.login},
		{"GET", "/api/user/info", c.info},
		{"POST", "/api/user/add", c.add},
		{"GET", "/api/user/list", c.list},
		{"PUT", "/api/user/edit/{id:int}", c.edit},
		{"DELETE", "/api/user/delete/{id:int}", c.remove},
		{"POST", "/api/user/change-pwd", c.changePassword},
	} {
		if err := r.Register(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

var errBadLogin = apperr.Unauth("Invalid username or password")

type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Component) login(req *web.Request) (any, error) {
	var f loginForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.Username) == "" || f.Password == "" {
		return nil, apperr.Invalid("username and password are required")
	}
	ctx := req.Context()
	log := zap.L().With(zap.String("username", f.Username))
	if ri := requestinfo.FromContext(ctx); ri != nil {
		log = log.With(zap.String("ip", ri.IP), zap.String("browser", ri.Browser), zap.String("os", ri.OS))
	}

	u, err := c.deps.Store.Users.Get(ctx, orm.Eq{"username": f.Username})
	if errors.Is(err, orm.ErrNotFound) {
		log.Warn("login failed", zap.String("reason", "unknown user"))
		return nil, errBadLogin
	}
	if err != nil {
		return nil, err
	}
	if !u.Enabled() {
		log.Warn("login failed", zap.String("reason", "disabled"))
		return nil, apperr.Unauth("User disabled")
	}
	if !auth.CheckPassword(u.Password(), f.Password) {
		log.Warn("login failed", zap.String("reason", "bad password"))
		return nil, errBadLogin
	}

	if err := u.Set("last_login_time", c.deps.Clock()()); err != nil {
		return nil, err
	}
	if err := u.Save(ctx); err != nil {
		return nil, err
	}
	token, exp, err := c.deps.Tokens.Issue(u.ID(), u.Username())
	if err != nil {
		return nil, err
	}
	role, err := roleOf(ctx, u)
	if err != nil {
		return nil, err
	}
	out := masked(u)
	out["role"] = role.name()
	log.Info("login ok", zap.Int64("user_id", u.ID()))
	return map[string]any{"token": token, "expires_at": exp.Unix(), "user": out}, nil
}

func (c *Component) info(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	u, ok, err := entity.Lookup(ctx, c.deps.Store.Users, me.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("User")
	}
	role, err := roleOf(ctx, u)
	if err != nil {
		return nil, err
	}
	out := masked(u)
	out["role"] = role.name()
	out["role_code"] = role.code()
	out["is_admin"] = role.admin()
	return out, nil
}

type addForm struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
	Nickname string `json:"nickname" validate:"required,max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=64"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	Status   int    `json:"status" validate:"oneof=0 1"`
}

func (c *Component) add(req *web.Request) (any, error) {
	f := addForm{Status: 1}
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	ctx := req.Context()
	st := c.deps.Store

	taken, err := component.Taken(ctx, st.Users, "username", f.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("Username already exists")
	}
	if _, ok, err := entity.Lookup(ctx, st.Roles, f.RoleID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.Invalid("Role not found")
	}
	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		return nil, err
	}

	u := st.Users.New()
	for _, kv := range []struct {
		k string
		v any
	}{
		{"username", f.Username},
		{"password", hash},
		{"nickname", f.Nickname},
		{"email", f.Email},
		{"phone", f.Phone},
		{"role_id", f.RoleID},
		{"status", f.Status},
	} {
		if err := u.Set(kv.k, kv.v); err != nil {
			return nil, err
		}
	}
	if err := u.Save(ctx); err != nil {
		return nil, err
	}
	zap.L().Info("user created", zap.Int64("id", u.ID()), zap.String("by", req.Username()))
	return u.Public(), nil
}

func (c *Component) list(req *web.Request) (any, error) {
	ctx := req.Context()
	st := c.deps.Store
	page, size := req.IntParam("page", 1), req.IntParam("page_size", orm.DefaultPageSize)

	var p orm.Page[entity.User]
	if kw := strings.TrimSpace(req.Param("keyword")); kw != "" {
		all, err := st.Users.Filter(ctx, nil)
		if err != nil {
			return nil, err
		}
		kw = strings.ToLower(kw)
		hits := all[:0]
		for _, u := range all {
			if strings.Contains(strings.ToLower(u.Username()), kw) {
				hits = append(hits, u)
			}
		}
		p = orm.Paginate(hits, page, size)
	} else {
		var err error
		if p, err = st.Users.Paginate(ctx, page, size, nil); err != nil {
			return nil, err
		}
	}

	roles, err := st.Roles.Filter(ctx, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(roles))
	for _, r := range roles {
		names[r.ID()] = r.Name()
	}
	return orm.MapPage(p, func(u entity.User) map[string]any {
		m := u.Public()
		m["role_name"] = names[u.RoleID()]
		return m
	}), nil
}

type editForm struct {
	Nickname string `json:"nickname" validate:"max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=64"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Avatar   string `json:"avatar" validate:"max=255"`
	RoleID   int64  `json:"role_id"`
	Status   int    `json:"status" validate:"oneof=0 1"`
	Password string `json:"password" validate:"omitempty,password"`
}

func (c *Component) edit(req *web.Request) (any, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return nil, err
	}
	var f editForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	ctx := req.Context()
	st := c.deps.Store

	u, ok, err := entity.Lookup(ctx, st.Users, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("User")
	}
	if req.Has("role_id") {
		if _, ok, err := entity.Lookup(ctx, st.Roles, f.RoleID); err != nil {
			return nil, err
		} else if !ok {
			return nil, apperr.Invalid("Role not found")
		}
	}
	if err := component.Assign(u.Record, req.Body, "nickname", "email", "phone", "avatar", "role_id", "status"); err != nil {
		return nil, err
	}
	if req.Has("password") && f.Password != "" {
		hash, err := auth.HashPassword(f.Password)
		if err != nil {
			return nil, err
		}
		if err := u.Set("password", hash); err != nil {
			return nil, err
		}
	}
	if err := u.Save(ctx); err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (c *Component) remove(req *web.Request) (any, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	u, ok, err := entity.Lookup(ctx, c.deps.Store.Users, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("User")
	}
	role, err := roleOf(ctx, u)
	if err != nil {
		return nil, err
	}
	if role.admin() {
		return nil, apperr.Forbid("Cannot delete a super administrator")
	}
	if err := u.Delete(ctx); err != nil {
		return nil, err
	}
	zap.L().Info("user deleted", zap.Int64("id", id), zap.String("by", req.Username()))
	return map[string]any{"msg": "Deleted"}, nil
}

type passwordForm struct {
	OldPwd string `json:"old_pwd" validate:"required"`
	NewPwd string `json:"new_pwd" validate:"required,password"`
}

func (c *Component) changePassword(req *web.Request) (any, error) {
	var f passwordForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	u, ok, err := entity.Lookup(ctx, c.deps.Store.Users, me.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("User")
	}
	if !auth.CheckPassword(u.Password(), f.OldPwd) {
		return nil, apperr.Invalid("Old password is incorrect")
	}
	hash, err := auth.HashPassword(f.NewPwd)
	if err != nil {
		return nil, err
	}
	if err := u.Set("password", hash); err != nil {
		return nil, err
	}
	if err := u.Save(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"msg": "Password changed"}, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// roleRef tolerates a dangling role_id: a user whose role row is gone reads
// as having no role.
type roleRef struct{ r *entity.Role }

func (rr roleRef) name() string {
	if rr.r == nil {
		return ""
	}
	return rr.r.Name()
}

func (rr roleRef) code() string {
	if rr.r == nil {
		return ""
	}
	return rr.r.Code()
}

func (rr roleRef) admin() bool { return rr.r != nil && rr.r.IsAdmin() }

func roleOf(ctx context.Context, u entity.User) (roleRef, error) {
	rec, err := u.Related(ctx, "role_id")
	if errors.Is(err, orm.ErrNotFound) || (err == nil && rec == nil) {
		return roleRef{}, nil
	}
	if err != nil {
		return roleRef{}, err
	}
	return roleRef{&entity.Role{Record: rec}}, nil
}

func masked(u entity.User) map[string]any {
	out := u.Public()
	for _, k := range []string{"phone", "email"} {
		if s, ok := out[k].(string); ok {
			out[k] = middleware.Mask(k, s)
		}
	}
	return out
}
