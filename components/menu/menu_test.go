package menu

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/testkit"
	"github.com/yanizio/adminkit/internal/tree"
)

func menuRow(id int64, name string, parent int64) map[string]any {
	return map[string]any{
		"id": id, "name": name, "path": "/" + name, "component": name, "icon": "",
		"parent_id": parent, "sort": 0, "is_show": 1, "permission_code": "",
		"create_time": testkit.Now, "update_time": testkit.Now,
	}
}

func TestListVisibleTree(t *testing.T) {
	deps, mock, _ := testkit.Deps(t)
	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery(testkit.Filter(entity.MenuSchema, testkit.Where("is_show"))).
		WithArgs(int64(1)).
		WillReturnRows(testkit.Rows(entity.MenuSchema,
			menuRow(1, "system", 0), menuRow(2, "users", 1), menuRow(3, "orphan", 99)))

	out, err := c.list(testkit.Request(t, "GET", "/api/menu/list", nil))
	if err != nil {
		t.Fatal(err)
	}
	roots := out.([]tree.Node)
	if len(roots) != 2 || len(roots[0]["children"].([]tree.Node)) != 1 {
		t.Fatalf("tree = %v", roots)
	}
}

func TestAdd(t *testing.T) {
	deps, mock, _ := testkit.Deps(t)
	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatal(err)
	}

	_, err := c.add(testkit.Request(t, "POST", "/api/menu/add", map[string]any{"name": "logs", "path": "/logs"}))
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("missing component: err = %v", err)
	}

	mock.ExpectExec(testkit.Insert(entity.MenuSchema)).WillReturnResult(sqlmock.NewResult(6, 1))
	out, err := c.add(testkit.Request(t, "POST", "/api/menu/add",
		map[string]any{"name": "logs", "path": "/logs", "component": "LogView", "parent_id": 1}))
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["id"] != int64(6) || m["is_show"] != int64(1) || m["parent_id"] != int64(1) {
		t.Fatalf("created = %v", m)
	}
}
