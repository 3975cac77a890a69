// components/notify/notify.go
//
// Notifications inbox.
//
// Context
// -------
// A notification with user_id NULL is a broadcast and shows up in every
// inbox; otherwise it belongs to one user.  The read flag lives on the row,
// so marking a broadcast read marks it for everyone.
//
// Routes
//
//	POST   /api/notify/add          → create (omit user_id to broadcast)
//	GET    /api/notify/list         → caller's inbox, paginated
//	GET    /api/notify/unread-count → {count}
//	PUT    /api/notify/read/{id}    → mark one read
//	PUT    /api/notify/read-all     → mark the whole inbox read
//	DELETE /api/notify/delete/{id}  → remove
//
// Notes
// -----
//   • read/{id} refuses a notification addressed to somebody else.
//   • Oxford commas, two spaces after periods.
package notify

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

// Component serves /api/notify/*.
type Component struct {
	deps component.Deps
}

func init() { component.Register(&Component{}) }

func (c *Component) Name() string { return "notify" }

func (c *Component) Init(d component.Deps) error {
	if d.Store == nil {
		return errors.New("notify: store is required")
	}
	c.deps = d
	return nil
}

func (c *Component) Routes(r component.Registrar) error {
	for _, rt := range []struct {
		method, path string
		h            web.Handler
	}{
		{"POST", "/api/notify/add", c.add},
		{"GET", "/api/notify/list", c.list},
		{"GET", "/api/notify/unread-count", c.unread},
		{"PUT", "/api/notify/read/{id:int}", c.read},
		{"PUT", "/api/notify/read-all", c.readAll},
		{"DELETE", "/api/notify/delete/{id:int}", c.remove},
	} {
		if err := r.Register(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

type notifyForm struct {
	Title   string `json:"title" validate:"max=128"`
	Content string `json:"content"`
	Type    int    `json:"type" validate:"oneof=1 2"`
	UserID  *int64 `json:"user_id" validate:"omitempty,gt=0"`
}

func (c *Component) add(req *web.Request) (any, error) {
	f := notifyForm{Type: 1}
	if err := req.Bind(&f); err != nil {
		return nil, err
	}
	if f.Title == "" || f.Content == "" {
		return nil, apperr.Invalid("Title and content are required")
	}
	ctx := req.Context()
	st := c.deps.Store
	vals := map[string]any{"title": f.Title, "content": f.Content, "type": f.Type}
	if f.UserID != nil {
		if _, ok, err := entity.Lookup(ctx, st.Users, *f.UserID); err != nil {
			return nil, err
		} else if !ok {
			return nil, apperr.Invalid("User not found")
		}
		vals["user_id"] = *f.UserID
	}

	n := st.Notifications.New()
	if err := component.Assign(n.Record, vals, "title", "content", "type", "user_id"); err != nil {
		return nil, err
	}
	if err := n.Save(ctx); err != nil {
		return nil, err
	}
	zap.L().Info("notification created",
		zap.Int64("id", n.ID()), zap.Int64("to", n.Owner()), zap.String("by", req.Username()))
	return n.Map(), nil
}

func (c *Component) list(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	p, err := c.deps.Store.Notifications.Paginate(req.Context(),
		req.IntParam("page", 1), req.IntParam("page_size", orm.DefaultPageSize), entity.Inbox(me.UserID))
	if err != nil {
		return nil, err
	}
	return orm.MapPage(p, func(n entity.Notification) map[string]any { return n.Map() }), nil
}

func unreadInbox(userID int64) orm.Eq {
	eq := entity.Inbox(userID)
	eq["is_read"] = 0
	return eq
}

func (c *Component) unread(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	n, err := c.deps.Store.Notifications.Count(req.Context(), unreadInbox(me.UserID))
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": n}, nil
}

func (c *Component) read(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	id, err := req.IDParam("id")
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	n, ok, err := entity.Lookup(ctx, c.deps.Store.Notifications, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("Notification")
	}
	if owner := n.Owner(); owner != 0 && owner != me.UserID {
		return nil, apperr.Forbid("No permission to operate on this notification")
	}
	if err := n.Set("is_read", 1); err != nil {
		return nil, err
	}
	if err := n.Save(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"msg": "Marked as read"}, nil
}

func (c *Component) readAll(req *web.Request) (any, error) {
	me, err := component.Caller(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	pending, err := c.deps.Store.Notifications.Filter(ctx, unreadInbox(me.UserID))
	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		if err := n.Set("is_read", 1); err != nil {
			return nil, err
		}
		if err := n.Save(ctx); err != nil {
			return nil, err
		}
	}
	return map[string]any{"msg": "All marked as read", "count": len(pending)}, nil
}

func (c *Component) remove(req *web.Request) (any, error) {
	id, err := req.IDParam("id")
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	n, ok, err := entity.Lookup(ctx, c.deps.Store.Notifications, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, component.NotFound("Notification")
	}
	if err := n.Delete(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"msg": "Deleted"}, nil
}
