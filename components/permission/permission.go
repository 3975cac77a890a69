// components/permission/permission.go
//
// Permission catalogue, served as a tree.
//
// Context
// -------
// Routes
//
//	POST   /api/permission/add          → create
//	GET    /api/permission/list         → full tree, children sorted by sort
//	PUT    /api/permission/edit/{id}    → update
//	DELETE /api/permission/delete/{id}  → removes direct children too
//
// Codes follow "resource:action" and must be unique; the auth middleware
// derives the same shape from /api/<resource>/<action>.  Changing or
// removing a code clears every role's cached permission set.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package permission

import (
	"errors"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/tree"
	"github.com/yanizio/adminkit/internal/web"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/permission/*.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "permission" }

func (c *Component) Init(d component.Deps) error {
	if d.Store == nil || d.ACL == nil {
		return errors.New("permission: store and ACL cache are required")
	}
	c.deps = d
	return nil
}

func (c *Component) Routes(r component.Registrar) error {
	for _, rt := range []struct {
		method, path string
		h            web.Handler
	}{
		{"POST", "/api/permission/add", c.add},
		{"GET", "/api/permission/list", c.list},
		{"PUT", "/api/permission/edit/{id:int}", c.edit},
		{"DELETE", "/api/permission/delete/{id:int}", c.remove},
	} {
		if err := r.Register(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

type permForm struct {
	Code     string `json:"code" validate:"max=64"`
	Name     string `json:"name" validate:"max=32"`
	Type     *int   `json:"type" validate:"omitempty,oneof=1 2 3"`
	ParentID int64  `json:"parent_id" validate:"gte=0"`
	Sort     int    `json:"sort"`
}

func (c *Component) add(req *web.Request) (any, error) {
	var f permForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	if f.Code == "" || f.Name == "" || f.Type == nil {
		return nil, apperr.Invalid("Permission code, name, and type are required")
	}
	ctx := req.Context()
	st := c.deps.Store
	taken, err := component.Taken(ctx, st.Permissions, "code", f.Code, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("Permission code already exists")
	}

	p := st.Permissions.New()
	if err := component.Assign(p.Record, map[string]any{
		"code": f.Code, "name": f.Name, "type": *f.Type, "parent_id": f.ParentID, "sort": f.Sort,
	}, "code", "name", "type", "parent_id", "sort"); err != nil {
		return nil, err
	}
	if err := p.Save(ctx); err != nil {
		return nil, err
	}
	return p.Map(), nil
}

func (c *Component) list(req *web.Request) (any, error) {
	perms, err := c.deps.Store.Permissions.Filter(req.Context(), nil)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(perms))
	for i, p := range perms {
		rows[i] = p.Map()
	}
	return tree.Build(rows, "id", "parent_id", "children"), nil
}

func (c *Component) load(req *web.Request) (entity.Permission, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return entity.Permission{}, err
	}
	p, ok, err := entity.Lookup(req.Context(), c.deps.Store.Permissions, id)
	if err != nil {
		return entity.Permission{}, err
	}
	if !ok {
		return entity.Permission{}, component.NotFound("Permission")
	}
	return p, nil
}

func (c *Component) edit(req *web.Request) (any, error) {
	var f permForm
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	p, err := c.load(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	if req.Has("code") {
		if f.Code == "" {
			return nil, apperr.Invalid("Permission code cannot be empty")
		}
		taken, err := component.Taken(ctx, c.deps.Store.Permissions, "code", f.Code, p.ID())
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Invalid("Permission code already exists")
		}
	}
	if req.Has("parent_id") && f.ParentID == p.ID() {
		return nil, apperr.Invalid("A permission cannot be its own parent")
	}
	if err := component.Assign(p.Record, req.Body, "code", "name", "type", "parent_id", "sort"); err != nil {
		return nil, err
	}
	if err := p.Save(ctx); err != nil {
		return nil, err
	}
	c.deps.ACL.InvalidateAll()
	return p.Map(), nil
}

func (c *Component) remove(req *web.Request) (any, error) {
	p, err := c.load(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	st := c.deps.Store

	children, err := st.Permissions.Filter(ctx, orm.Eq{"parent_id": p.ID()})
	if err != nil {
		return nil, err
	}
	doomed := append(children, p)
	ids := make([]any, len(doomed))
	for i, d := range doomed {
		ids[i] = d.ID()
	}
	binds, err := st.RolePermissions.Filter(ctx, orm.Eq{"permission_id": orm.AnyOf(ids...)})
	if err != nil {
		return nil, err
	}
	for _, b := range binds {
		if err := b.Delete(ctx); err != nil {
			return nil, err
		}
	}
	for _, d := range doomed {
		if err := d.Delete(ctx); err != nil {
			return nil, err
		}
	}
	c.deps.ACL.InvalidateAll()
	zap.L().Info("permission deleted",
		zap.String("code", p.Code()), zap.Int("children", len(children)), zap.String("by", req.Username()))
	return map[string]any{"msg": "Deleted"}, nil
}
