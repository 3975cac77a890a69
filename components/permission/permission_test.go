package permission

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/testkit"
	"github.com/yanizio/adminkit/internal/tree"
)

func newComp(t *testing.T) (*Component, sqlmock.Sqlmock, *testkit.ACL) {
	t.Helper()
	deps, mock, acl := testkit.Deps(t)
	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatal(err)
	}
	return c, mock, acl
}

func permRow(id int64, code string, parent, sort int64) map[string]any {
	return map[string]any{
		"id": id, "code": code, "name": code, "type": 3, "parent_id": parent, "sort": sort,
		"create_time": testkit.Now, "update_time": testkit.Now,
	}
}

func TestAdd(t *testing.T) {
	c, mock, _ := newComp(t)

	_, err := c.add(testkit.Request(t, "POST", "/api/permission/add", map[string]any{"code": "user:list", "name": "List"}))
	if apperr.Message(err, false) != "Permission code, name, and type are required" {
		t.Fatalf("missing type: err = %v", err)
	}

	mock.ExpectQuery(testkit.Filter(entity.PermissionSchema, testkit.Where("code"))).
		WithArgs("user:list").
		WillReturnRows(testkit.Rows(entity.PermissionSchema))
	mock.ExpectExec(testkit.Insert(entity.PermissionSchema)).WillReturnResult(sqlmock.NewResult(8, 1))

	out, err := c.add(testkit.Request(t, "POST", "/api/permission/add",
		map[string]any{"code": "user:list", "name": "List", "type": 3, "parent_id": 2}))
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["id"] != int64(8) || m["parent_id"] != int64(2) || m["type"] != int64(3) {
		t.Fatalf("created = %v", m)
	}
}

func TestAddDuplicateCode(t *testing.T) {
	c, mock, _ := newComp(t)
	mock.ExpectQuery(testkit.Filter(entity.PermissionSchema, testkit.Where("code"))).
		WillReturnRows(testkit.Rows(entity.PermissionSchema, permRow(1, "user:list", 0, 0)))

	_, err := c.add(testkit.Request(t, "POST", "/api/permission/add",
		map[string]any{"code": "user:list", "name": "List", "type": 3}))
	if apperr.Message(err, false) != "Permission code already exists" {
		t.Fatalf("err = %v", err)
	}
}

func TestListTree(t *testing.T) {
	c, mock, _ := newComp(t)
	mock.ExpectQuery(testkit.Filter(entity.PermissionSchema, "")).
		WillReturnRows(testkit.Rows(entity.PermissionSchema,
			permRow(1, "user", 0, 0), permRow(2, "user:add", 1, 2), permRow(3, "user:list", 1, 1), permRow(4, "role", 0, 0)))

	out, err := c.list(testkit.Request(t, "GET", "/api/permission/list", nil))
	if err != nil {
		t.Fatal(err)
	}
	roots := out.([]tree.Node)
	if len(roots) != 2 {
		t.Fatalf("roots = %v", roots)
	}
	kids := roots[0]["children"].([]tree.Node)
	if len(kids) != 2 || kids[0]["code"] != "user:list" || kids[1]["code"] != "user:add" {
		t.Fatalf("children = %v", kids)
	}
}

func TestEditInvalidatesACL(t *testing.T) {
	c, mock, acl := newComp(t)
	mock.ExpectQuery(testkit.Get(entity.PermissionSchema, testkit.Where("id"))).
		WithArgs(int64(3)).
		WillReturnRows(testkit.Rows(entity.PermissionSchema, permRow(3, "user:list", 1, 1)))
	mock.ExpectQuery(testkit.Filter(entity.PermissionSchema, testkit.Where("code"))).
		WithArgs("user:index").
		WillReturnRows(testkit.Rows(entity.PermissionSchema))
	mock.ExpectExec(testkit.Update(entity.PermissionSchema, "code")).
		WithArgs("user:index", testkit.Now, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := c.edit(testkit.As(testkit.Request(t, "PUT", "/api/permission/edit/3",
		map[string]any{"code": "user:index"}), testkit.Admin, map[string]string{"id": "3"}))
	if err != nil {
		t.Fatal(err)
	}
	if acl.All != 1 {
		t.Fatalf("InvalidateAll calls = %d", acl.All)
	}
}

func TestEditSelfParent(t *testing.T) {
	c, mock, _ := newComp(t)
	mock.ExpectQuery(testkit.Get(entity.PermissionSchema, testkit.Where("id"))).
		WillReturnRows(testkit.Rows(entity.PermissionSchema, permRow(3, "user:list", 1, 1)))

	_, err := c.edit(testkit.As(testkit.Request(t, "PUT", "/api/permission/edit/3",
		map[string]any{"parent_id": 3}), testkit.Admin, map[string]string{"id": "3"}))
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteCascadesChildrenAndBindings(t *testing.T) {
	c, mock, acl := newComp(t)
	mock.ExpectQuery(testkit.Get(entity.PermissionSchema, testkit.Where("id"))).
		WithArgs(int64(1)).
		WillReturnRows(testkit.Rows(entity.PermissionSchema, permRow(1, "user", 0, 0)))
	mock.ExpectQuery(testkit.Filter(entity.PermissionSchema, testkit.Where("parent_id"))).
		WithArgs(int64(1)).
		WillReturnRows(testkit.Rows(entity.PermissionSchema, permRow(2, "user:add", 1, 0)))
	mock.ExpectQuery(testkit.Filter(entity.RolePermissionSchema, " WHERE `permission_id` IN (?, ?)")).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(testkit.Rows(entity.RolePermissionSchema,
			map[string]any{"id": 20, "role_id": 2, "permission_id": 2}))
	mock.ExpectExec(testkit.Delete(entity.RolePermissionSchema)).WithArgs(int64(20)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(testkit.Delete(entity.PermissionSchema)).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(testkit.Delete(entity.PermissionSchema)).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := c.remove(testkit.As(testkit.Request(t, "DELETE", "/api/permission/delete/1", nil),
		testkit.Admin, map[string]string{"id": "1"})); err != nil {
		t.Fatal(err)
	}
	if acl.All != 1 {
		t.Fatalf("InvalidateAll calls = %d", acl.All)
	}
}

func TestDeleteMissing(t *testing.T) {
	c, mock, _ := newComp(t)
	mock.ExpectQuery(testkit.Get(entity.PermissionSchema, testkit.Where("id"))).
		WillReturnRows(testkit.Rows(entity.PermissionSchema))

	_, err := c.remove(testkit.As(testkit.Request(t, "DELETE", "/api/permission/delete/9", nil),
		testkit.Admin, map[string]string{"id": "9"}))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("err = %v", err)
	}
}
