// components/dashboard/dashboard.go
//
// Console landing-page figures.  GET /api/dashboard/stat returns row counts
// for each table, the caller's unread notifications, sign-ups over the last
// seven days, and the number of users per role.
package dashboard

import (
	"errors"
	"time"

	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/web"
)

// NewUserWindow is the look-back for new_user_7d.
const NewUserWindow = 7 * 24 * time.Hour

var _ component.Component = (*Component)(nil)

// Component serves /api/dashboard/stat.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "dashboard" }

func (c *Component) Init(d component.Deps) error {
	if d.Store == nil {
		return errors.New("dashboard: store is required")
	}
	c.deps = d
	return nil
}

func (c *Component) Routes(r component.Registrar) error {
	return r.Register("GET", "/api/dashboard/stat", c.stat)
}

// RoleCount is one slice of the role distribution.
type RoleCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Stat is the dashboard payload.
type Stat struct {
	UserCount    int64       `json:"user_count"`
	RoleCount    int64       `json:"role_count"`
	PermCount    int64       `json:"perm_count"`
	MenuCount    int64       `json:"menu_count"`
	UnreadNotify int64       `json:"unread_notify"`
	NewUser7d    int64       `json:"new_user_7d"`
	RoleDist     []RoleCount `json:"role_dist"`
}

func (c *Component) stat(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	st := c.deps.Store

	var s Stat
	unread := entity.Inbox(me.UserID)
	unread["is_read"] = 0
	since := c.deps.Clock()().Add(-NewUserWindow)
	for _, q := range []struct {
		dst   *int64
		count func() (int64, error)
	}{
		{&s.UserCount, func() (int64, error) { return st.Users.Count(ctx, nil) }},
		{&s.RoleCount, func() (int64, error) { return st.Roles.Count(ctx, nil) }},
		{&s.PermCount, func() (int64, error) { return st.Permissions.Count(ctx, nil) }},
		{&s.MenuCount, func() (int64, error) { return st.Menus.Count(ctx, nil) }},
		{&s.UnreadNotify, func() (int64, error) { return st.Notifications.Count(ctx, unread) }},
		{&s.NewUser7d, func() (int64, error) {
			return st.Users.Count(ctx, orm.Eq{"create_time": orm.AtLeast(since)})
		}},
	} {
		n, err := q.count()
		if err != nil {
			return nil, err
		}
		*q.dst = n
	}

	roles, err := st.Roles.Filter(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.RoleDist = make([]RoleCount, 0, len(roles))
	for _, r := range roles {
		n, err := st.Users.Count(ctx, orm.Eq{"role_id": r.ID()})
		if err != nil {
			return nil, err
		}
		s.RoleDist = append(s.RoleDist, RoleCount{Name: r.Name(), Count: n})
	}
	return s, nil
}
