package dashboard

import (
	"testing"

	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/testkit"
)

func TestStat(t *testing.T) {
	deps, mock, _ := testkit.Deps(t)
	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(testkit.Count(entity.UserSchema, "")).WillReturnRows(testkit.CountRow(12))
	mock.ExpectQuery(testkit.Count(entity.RoleSchema, "")).WillReturnRows(testkit.CountRow(2))
	mock.ExpectQuery(testkit.Count(entity.PermissionSchema, "")).WillReturnRows(testkit.CountRow(30))
	mock.ExpectQuery(testkit.Count(entity.MenuSchema, "")).WillReturnRows(testkit.CountRow(8))
	mock.ExpectQuery(testkit.Count(entity.NotificationSchema, " WHERE (`user_id` IS NULL OR `user_id` IN (?)) AND `is_read` = ?")).
		WithArgs(int64(2), int64(0)).WillReturnRows(testkit.CountRow(1))
	mock.ExpectQuery(testkit.Count(entity.UserSchema, " WHERE `create_time` >= ?")).
		WithArgs(testkit.Now.Add(-NewUserWindow)).WillReturnRows(testkit.CountRow(3))
	mock.ExpectQuery(testkit.Filter(entity.RoleSchema, "")).
		WillReturnRows(testkit.Rows(entity.RoleSchema,
			map[string]any{"id": 1, "name": "admin", "code": "super_admin", "desc": "", "is_admin": 1, "sort": 0},
			map[string]any{"id": 2, "name": "editor", "code": "editor", "desc": "", "is_admin": 0, "sort": 0}))
	mock.ExpectQuery(testkit.Count(entity.UserSchema, testkit.Where("role_id"))).
		WithArgs(int64(1)).WillReturnRows(testkit.CountRow(1))
	mock.ExpectQuery(testkit.Count(entity.UserSchema, testkit.Where("role_id"))).
		WithArgs(int64(2)).WillReturnRows(testkit.CountRow(11))

	me := &auth.Principal{UserID: 2, Username: "alice", RoleID: 2}
	out, err := c.stat(testkit.As(testkit.Request(t, "GET", "/api/dashboard/stat", nil), me, nil))
	if err != nil {
		t.Fatal(err)
	}
	s := out.(Stat)
	if s.UserCount != 12 || s.UnreadNotify != 1 || s.NewUser7d != 3 || len(s.RoleDist) != 2 {
		t.Fatalf("stat = %+v", s)
	}
	if s.RoleDist[1] != (RoleCount{Name: "editor", Count: 11}) {
		t.Fatalf("role_dist = %+v", s.RoleDist)
	}
}
