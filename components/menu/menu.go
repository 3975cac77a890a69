// components/menu/menu.go
//
// Sidebar menu.  GET /api/menu/list returns the visible menu as a tree;
// POST /api/menu/add creates an entry.
package menu

import (
	"errors"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/tree"
	"github.com/yanizio/adminkit/internal/web"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/menu/*.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "menu" }

func (c *Component) Init(d component.Deps) error {
	if d.Store == nil {
		return errors.New("menu: store is required")
	}
	c.deps = d
	return nil
}

func (c *Component) Routes(r component.Registrar) error {
	if err := r.Register("GET", "/api/menu/list", c.list); err != nil {
		return err
	}
	return r.Register("POST", "/api/menu/add", c.add)
}

func (c *Component) list(req *web.Request) (any, error) {
	menus, err := c.deps.Store.Menus.Filter(req.Context(), orm.Eq{"is_show": 1})
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(menus))
	for i, m := range menus {
		rows[i] = m.Map()
	}
	return tree.Build(rows, "id", "parent_id", "children"), nil
}

type menuForm struct {
	Name           string `json:"name" validate:"max=32"`
	Path           string `json:"path" validate:"max=64"`
	Component      string `json:"component" validate:"max=128"`
	Icon           string `json:"icon" validate:"max=64"`
	ParentID       int64  `json:"parent_id" validate:"gte=0"`
	Sort           int    `json:"sort"`
	IsShow         int    `json:"is_show" validate:"oneof=0 1"`
	PermissionCode string `json:"permission_code" validate:"max=64"`
}

func (c *Component) add(req *web.Request) (any, error) {
	f := menuForm{IsShow: 1}
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	if f.Name == "" || f.Path == "" || f.Component == "" {
		return nil, apperr.Invalid("Menu name, path, and component are required")
	}
	m := c.deps.Store.Menus.New()
	if err := component.Assign(m.Record, map[string]any{
		"name": f.Name, "path": f.Path, "component": f.Component, "icon": f.Icon,
		"parent_id": f.ParentID, "sort": f.Sort, "is_show": f.IsShow, "permission_code": f.PermissionCode,
	}, "name", "path", "component", "icon", "parent_id", "sort", "is_show", "permission_code"); err != nil {
		return nil, err
	}
	if err := m.Save(req.Context()); err != nil {
		return nil, err
	}
	return m.Map(), nil
}
