// components/role/role.go
//
// Roles and their permission bindings.
//
// Context
// -------
// Routes
//
//	POST   /api/role/add              → create
//	GET    /api/role/list             → paginated, with perm_count
//	PUT    /api/role/edit/{id}        → rename, recode, resort
//	DELETE /api/role/delete/{id}      → refused for the super-admin role
//	POST   /api/role/assign-perm/{id} → replace the role's permission set
//	GET    /api/role/perm-list/{id}   → permission ids bound to the role
//
// A role with is_admin = 1 bypasses RBAC entirely.  The flag is set at
// creation and never changes afterwards, and such a role cannot be deleted.
//
// Notes
// -----
//   • Anything that changes a role's permission set invalidates that role
//     in the ACL cache so the next request sees the new set.
//   • Oxford commas, two spaces after periods.
package role

import (
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/web"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/role/*.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "role" }

func (c *Component) Init(d component.Deps) error {
	if d.Store == nil || d.ACL == nil {
		return errors.New("role: store and ACL cache are required")
	}
	c.deps = d
	return nil
}

func (c *Component) Routes(r component.Registrar) error {
	for _, rt := range []struct {
		method, path string
		h            web.Handler
	}{
		{"POST", "/api/role/add", c.add},
		{"GET", "/api/role/list", c.list},
		{"PUT", "/api/role/edit/{id:int}", c.edit},
		{"DELETE", "/api/role/delete/{id:int}", c.remove},
		{"POST", "/api/role/assign-perm/{id:int}", c.assign},
		{"GET", "/api/role/perm-list/{id:int}", c.permList},
	} {
		if err := r.Register(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

type roleForm struct {
	Name    string `json:"name" validate:"max=32"`
	Code    string `json:"code" validate:"max=64"`
	Desc    string `json:"desc" validate:"max=255"`
	IsAdmin int    `json:"is_admin" validate:"oneof=0 1"`
	Sort    int    `json:"sort"`
}

func (c *Component) add(req *web.Request) (any, error) {
	var f roleForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	if f.Name == "" || f.Code == "" {
		return nil, apperr.Invalid("Role name and code are required")
	}
	ctx := req.Context()
	st := c.deps.Store
	if err := c.unique(req, 0, f.Name, f.Code); err != nil {
		return nil, err
	}

	r := st.Roles.New()
	if err := component.Assign(r.Record, map[string]any{
		"name": f.Name, "code": f.Code, "desc": f.Desc, "is_admin": f.IsAdmin, "sort": f.Sort,
	}, "name", "code", "desc", "is_admin", "sort"); err != nil {
		return nil, err
	}
	if err := r.Save(ctx); err != nil {
		return nil, err
	}
	zap.L().Info("role created", zap.Int64("id", r.ID()), zap.String("code", f.Code), zap.String("by", req.Username()))
	return r.Map(), nil
}

// unique rejects a name or code already held by a role other than self.
func (c *Component) unique(req *web.Request, self int64, name, code string) error {
	ctx := req.Context()
	roles := c.deps.Store.Roles
	if name != "" {
		taken, err := component.Taken(ctx, roles, "name", name, self)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Invalid("Role name already exists")
		}
	}
	if code != "" {
		taken, err := component.Taken(ctx, roles, "code", code, self)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Invalid("Role code already exists")
		}
	}
	return nil
}

func (c *Component) list(req *web.Request) (any, error) {
	ctx := req.Context()
	st := c.deps.Store
	p, err := st.Roles.Paginate(ctx, req.IntParam("page", 1), req.IntParam("page_size", orm.DefaultPageSize), nil)
	if err != nil {
		return nil, err
	}
	out := orm.MapPage(p, func(r entity.Role) map[string]any { return r.Map() })
	for i, r := range p.List {
		n, err := st.RolePermissions.Count(ctx, orm.Eq{"role_id": r.ID()})
		if err != nil {
			return nil, err
		}
		out.List[i]["perm_count"] = n
	}
	return out, nil
}

func (c *Component) load(req *web.Request) (entity.Role, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return entity.Role{}, err
	}
	r, ok, err := entity.Lookup(req.Context(), c.deps.Store.Roles, id)
	if err != nil {
		return entity.Role{}, err
	}
	if !ok {
		return entity.Role{}, component.NotFound("Role")
	}
	return r, nil
}

func (c *Component) edit(req *web.Request) (any, error) {
	var f roleForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	r, err := c.load(req)
	if err != nil {
		return nil, err
	}
	if req.Has("is_admin") && f.IsAdmin != int(r.Int("is_admin")) {
		return nil, apperr.Forbid("The super-admin flag cannot be changed")
	}
	if req.Has("name") && f.Name == "" {
		return nil, apperr.Invalid("Role name cannot be empty")
	}
	if req.Has("code") && f.Code == "" {
		return nil, apperr.Invalid("Role code cannot be empty")
	}
	if err := c.unique(req, r.ID(), f.Name, f.Code); err != nil {
		return nil, err
	}
	if err := component.Assign(r.Record, req.Body, "name", "code", "desc", "sort"); err != nil {
		return nil, err
	}
	if err := r.Save(req.Context()); err != nil {
		return nil, err
	}
	return r.Map(), nil
}

func (c *Component) remove(req *web.Request) (any, error) {
	r, err := c.load(req)
	if err != nil {
		return nil, err
	}
	if r.IsAdmin() {
		return nil, apperr.Forbid("The super-admin role cannot be deleted")
	}
	ctx := req.Context()
	st := c.deps.Store
	n, err := st.Users.Count(ctx, orm.Eq{"role_id": r.ID()})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apperr.Invalid("Role is still assigned to users")
	}
	if err := c.unbind(req, r.ID()); err != nil {
		return nil, err
	}
	if err := r.Delete(ctx); err != nil {
		return nil, err
	}
	c.deps.ACL.Invalidate(r.ID())
	zap.L().Info("role deleted", zap.Int64("id", r.ID()), zap.String("by", req.Username()))
	return map[string]any{"msg": "Deleted"}, nil
}

func (c *Component) unbind(req *web.Request, roleID int64) error {
	ctx := req.Context()
	binds, err := c.deps.Store.RolePermissions.Filter(ctx, orm.Eq{"role_id": roleID})
	if err != nil {
		return err
	}
	for _, b := range binds {
		if err := b.Delete(ctx); err != nil {
			return err
		}
	}
	return nil
}

type assignForm struct {
	PermIDs []int64 `json:"perm_ids"`
}

func (c *Component) assign(req *web.Request) (any, error) {
	if _, ok := req.Body["perm_ids"].([]any); !ok {
		return nil, apperr.Invalid("perm_ids must be an array")
	}
	var f assignForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	r, err := c.load(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	st := c.deps.Store

	if err := c.unbind(req, r.ID()); err != nil {
		return nil, err
	}
	bound := 0
	if len(f.PermIDs) > 0 {
		ids := make([]any, len(f.PermIDs))
		for i, id := range f.PermIDs {
			ids[i] = id
		}
		perms, err := st.Permissions.Filter(ctx, orm.Eq{"id": orm.AnyOf(ids...)})
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			b := st.RolePermissions.New()
			if err := component.Assign(b.Record, map[string]any{"role_id": r.ID(), "permission_id": p.ID()},
				"role_id", "permission_id"); err != nil {
				return nil, err
			}
			if err := b.Save(ctx); err != nil {
				return nil, err
			}
			bound++
		}
	}
	c.deps.ACL.Invalidate(r.ID())
	zap.L().Info("role permissions assigned",
		zap.Int64("role", r.ID()), zap.Int("count", bound), zap.String("by", req.Username()))
	return map[string]any{"msg": "Permissions assigned", "count": bound}, nil
}

func (c *Component) permList(req *web.Request) (any, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return nil, err
	}
	binds, err := c.deps.Store.RolePermissions.Filter(req.Context(), orm.Eq{"role_id": id})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(binds))
	for i, b := range binds {
		ids[i] = b.PermissionID()
	}
	return ids, nil
}
