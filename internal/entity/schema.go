// internal/entity/schema.go
//
// Table descriptions for the admin console.
//
// Context
// -------
// Six tables back the console.  Each is declared once as an orm.Schema and
// never mutated.  Column order here is the column order of every generated
// SELECT and INSERT.
//
//	roles             ← users.role_id
//	permissions       ← role_permissions.permission_id
//	menus             (tree by parent_id, visible when is_show = 1)
//	notifications     (user_id NULL = broadcast)
//
// Notes
// -----
//   • Flags are ints (0 / 1) to match the stored TINYINT columns.
//   • Oxford commas, two spaces after periods.
package entity

import "github.com/yanizio/adminkit/internal/orm"

// DefaultAvatar is assigned to new users.
const DefaultAvatar = "/static/imgs/avatar-default.png"

var RoleSchema = orm.MustSchema("roles",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true, Comment: "role id"},
	orm.Field{Name: "name", Kind: orm.String, MaxLen: 32, Unique: true, Comment: "display name"},
	orm.Field{Name: "code", Kind: orm.String, MaxLen: 64, Unique: true, Comment: "stable identifier"},
	orm.Field{Name: "desc", Kind: orm.String, MaxLen: 255, Default: ""},
	orm.Field{Name: "is_admin", Kind: orm.Int, Default: 0, Comment: "1 = super-admin"},
	orm.Field{Name: "sort", Kind: orm.Int, Default: 0},
	orm.Field{Name: "create_time", Kind: orm.Time, AutoNowAdd: true},
	orm.Field{Name: "update_time", Kind: orm.Time, AutoNow: true},
)

var UserSchema = orm.MustSchema("users",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true},
	orm.Field{Name: "username", Kind: orm.String, MaxLen: 32, Unique: true},
	orm.Field{Name: "password", Kind: orm.String, MaxLen: 255, Comment: "bcrypt hash"},
	orm.Field{Name: "nickname", Kind: orm.String, MaxLen: 32},
	orm.Field{Name: "email", Kind: orm.String, MaxLen: 64, Default: ""},
	orm.Field{Name: "phone", Kind: orm.String, MaxLen: 11, Default: ""},
	orm.Field{Name: "avatar", Kind: orm.String, MaxLen: 255, Default: DefaultAvatar},
	orm.Field{Name: "role_id", Kind: orm.ForeignKey, Ref: RoleSchema},
	orm.Field{Name: "status", Kind: orm.Int, Default: 1, Comment: "0 disabled, 1 enabled"},
	orm.Field{Name: "last_login_time", Kind: orm.Time, Nullable: true},
	orm.Field{Name: "create_time", Kind: orm.Time, AutoNowAdd: true},
	orm.Field{Name: "update_time", Kind: orm.Time, AutoNow: true},
)

var PermissionSchema = orm.MustSchema("permissions",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true},
	orm.Field{Name: "code", Kind: orm.String, MaxLen: 64, Unique: true, Comment: "resource:action"},
	orm.Field{Name: "name", Kind: orm.String, MaxLen: 32},
	orm.Field{Name: "type", Kind: orm.Int, Comment: "1 page, 2 button, 3 api"},
	orm.Field{Name: "parent_id", Kind: orm.Int, Default: 0},
	orm.Field{Name: "sort", Kind: orm.Int, Default: 0},
	orm.Field{Name: "create_time", Kind: orm.Time, AutoNowAdd: true},
	orm.Field{Name: "update_time", Kind: orm.Time, AutoNow: true},
)

var RolePermissionSchema = orm.MustSchema("role_permissions",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true},
	orm.Field{Name: "role_id", Kind: orm.Int},
	orm.Field{Name: "permission_id", Kind: orm.Int},
)

var MenuSchema = orm.MustSchema("menus",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true},
	orm.Field{Name: "name", Kind: orm.String, MaxLen: 32},
	orm.Field{Name: "path", Kind: orm.String, MaxLen: 64},
	orm.Field{Name: "component", Kind: orm.String, MaxLen: 128},
	orm.Field{Name: "icon", Kind: orm.String, MaxLen: 64, Default: ""},
	orm.Field{Name: "parent_id", Kind: orm.Int, Default: 0},
	orm.Field{Name: "sort", Kind: orm.Int, Default: 0},
	orm.Field{Name: "is_show", Kind: orm.Int, Default: 1},
	orm.Field{Name: "permission_code", Kind: orm.String, MaxLen: 64, Default: ""},
	orm.Field{Name: "create_time", Kind: orm.Time, AutoNowAdd: true},
	orm.Field{Name: "update_time", Kind: orm.Time, AutoNow: true},
)

var NotificationSchema = orm.MustSchema("notifications",
	orm.Field{Name: "id", Kind: orm.Int, PrimaryKey: true},
	orm.Field{Name: "title", Kind: orm.String, MaxLen: 128},
	orm.Field{Name: "content", Kind: orm.String},
	orm.Field{Name: "type", Kind: orm.Int, Default: 1, Comment: "1 system, 2 business"},
	orm.Field{Name: "user_id", Kind: orm.ForeignKey, Ref: UserSchema, Nullable: true, Comment: "NULL = everyone"},
	orm.Field{Name: "is_read", Kind: orm.Int, Default: 0},
	orm.Field{Name: "create_time", Kind: orm.Time, AutoNowAdd: true},
)
