package entity

import (
	"context"
	"errors"

	"github.com/yanizio/adminkit/internal/orm"
)

// User is a users row.  The password hash never leaves through Public.
type User struct{ *orm.Record }

func (u User) Username() string { return u.Str("username") }
func (u User) Password() string { return u.Str("password") }
func (u User) RoleID() int64    { return u.Int("role_id") }
func (u User) Enabled() bool    { return u.Int("status") != 0 }

// Public renders the user without the password hash.
func (u User) Public() map[string]any { return u.Map("password") }

// Role is a roles row.
type Role struct{ *orm.Record }

func (r Role) Name() string  { return r.Str("name") }
func (r Role) Code() string  { return r.Str("code") }
func (r Role) IsAdmin() bool { return r.Int("is_admin") == 1 }

// Permission is a permissions row.
type Permission struct{ *orm.Record }

func (p Permission) Code() string { return p.Str("code") }

// RolePermission binds a role to a permission.
type RolePermission struct{ *orm.Record }

func (rp RolePermission) PermissionID() int64 { return rp.Int("permission_id") }

// Menu is a menus row.
type Menu struct{ *orm.Record }

// Notification is a notifications row.
type Notification struct{ *orm.Record }

// Owner returns the addressee, or 0 for a broadcast.
func (n Notification) Owner() int64 { return n.Int("user_id") }

// Store bundles one typed model per table.
type Store struct {
	DB              *orm.DB
	Users           *orm.Model[User]
	Roles           *orm.Model[Role]
	Permissions     *orm.Model[Permission]
	RolePermissions *orm.Model[RolePermission]
	Menus           *orm.Model[Menu]
	Notifications   *orm.Model[Notification]
}

// NewStore binds every schema to db.
func NewStore(db *orm.DB) *Store {
	return &Store{
		DB:              db,
		Users:           orm.NewModel(db, UserSchema, func(r *orm.Record) User { return User{r} }),
		Roles:           orm.NewModel(db, RoleSchema, func(r *orm.Record) Role { return Role{r} }),
		Permissions:     orm.NewModel(db, PermissionSchema, func(r *orm.Record) Permission { return Permission{r} }),
		RolePermissions: orm.NewModel(db, RolePermissionSchema, func(r *orm.Record) RolePermission { return RolePermission{r} }),
		Menus:           orm.NewModel(db, MenuSchema, func(r *orm.Record) Menu { return Menu{r} }),
		Notifications:   orm.NewModel(db, NotificationSchema, func(r *orm.Record) Notification { return Notification{r} }),
	}
}

// Inbox selects broadcasts plus notifications addressed to userID.
func Inbox(userID int64) orm.Eq {
	return orm.Eq{"user_id": orm.AnyOf(nil, userID)}
}

// Lookup returns the row with id, mapping orm.ErrNotFound to ok=false.
func Lookup[T any](ctx context.Context, m *orm.Model[T], id int64) (T, bool, error) {
	v, err := m.Get(ctx, orm.Eq{"id": id})
	if errors.Is(err, orm.ErrNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}
