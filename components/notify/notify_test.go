package notify

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/testkit"
)

const (
	inbox            = " WHERE (`user_id` IS NULL OR `user_id` IN (?))"
	unreadInboxWhere = inbox + " AND `is_read` = ?"
)

var alice = &auth.Principal{UserID: 2, Username: "alice", RoleID: 2, RoleCode: "editor"}

func newComp(t *testing.T) (*Component, sqlmock.Sqlmock) {
	t.Helper()
	deps, mock, _ := testkit.Deps(t)
	c := &Component{}
	if err := c.Init(deps); err != nil {
		t.Fatal(err)
	}
	return c, mock
}

func noteRow(id int64, owner any, read int64) map[string]any {
	return map[string]any{
		"id": id, "title": "t", "content": "c", "type": 1, "user_id": owner, "is_read": read,
		"create_time": testkit.Now,
	}
}

func TestAddBroadcast(t *testing.T) {
	c, mock := newComp(t)
	mock.ExpectExec(testkit.Insert(entity.NotificationSchema)).
		WithArgs("Maintenance", "Tonight at 22:00", int64(1), nil, int64(0), testkit.Now).
		WillReturnResult(sqlmock.NewResult(3, 1))

	out, err := c.add(testkit.As(testkit.Request(t, "POST", "/api/notify/add",
		map[string]any{"title": "Maintenance", "content": "Tonight at 22:00"}), testkit.Admin, nil))
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["id"] != int64(3) || m["user_id"] != nil {
		t.Fatalf("created = %v", m)
	}

	_, err = c.add(testkit.Request(t, "POST", "/api/notify/add", map[string]any{"title": "x"}))
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("missing content: err = %v", err)
	}
}

func TestListInbox(t *testing.T) {
	c, mock := newComp(t)
	mock.ExpectQuery(testkit.Count(entity.NotificationSchema, inbox)).
		WithArgs(int64(2)).WillReturnRows(testkit.CountRow(2))
	mock.ExpectQuery(testkit.Page(entity.NotificationSchema, inbox)).
		WithArgs(int64(2), 10, 0).
		WillReturnRows(testkit.Rows(entity.NotificationSchema, noteRow(1, nil, 0), noteRow(4, int64(2), 1)))

	out, err := c.list(testkit.As(testkit.Request(t, "GET", "/api/notify/list", nil), alice, nil))
	if err != nil {
		t.Fatal(err)
	}
	if p := out.(orm.Page[map[string]any]); p.Total != 2 || len(p.List) != 2 {
		t.Fatalf("page = %+v", p)
	}
}

func TestUnreadCount(t *testing.T) {
	c, mock := newComp(t)
	mock.ExpectQuery(testkit.Count(entity.NotificationSchema, unreadInboxWhere)).
		WithArgs(int64(2), int64(0)).WillReturnRows(testkit.CountRow(3))

	out, err := c.unread(testkit.As(testkit.Request(t, "GET", "/api/notify/unread-count", nil), alice, nil))
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["count"] != int64(3) {
		t.Fatalf("count = %v", m)
	}

	if _, err := c.unread(testkit.Request(t, "GET", "/api/notify/unread-count", nil)); apperr.KindOf(err) != apperr.Unauthorized {
		t.Fatalf("anonymous: err = %v", err)
	}
}

func TestReadOwnership(t *testing.T) {
	c, mock := newComp(t)
	get := testkit.Get(entity.NotificationSchema, testkit.Where("id"))

	mock.ExpectQuery(get).WithArgs(int64(5)).
		WillReturnRows(testkit.Rows(entity.NotificationSchema, noteRow(5, int64(7), 0)))
	_, err := c.read(testkit.As(testkit.Request(t, "PUT", "/api/notify/read/5", nil), alice, map[string]string{"id": "5"}))
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Fatalf("foreign: err = %v", err)
	}

	mock.ExpectQuery(get).WithArgs(int64(6)).WillReturnRows(testkit.Rows(entity.NotificationSchema))
	_, err = c.read(testkit.As(testkit.Request(t, "PUT", "/api/notify/read/6", nil), alice, map[string]string{"id": "6"}))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("missing: err = %v", err)
	}

	mock.ExpectQuery(get).WithArgs(int64(1)).
		WillReturnRows(testkit.Rows(entity.NotificationSchema, noteRow(1, nil, 0)))
	mock.ExpectExec(testkit.Update(entity.NotificationSchema, "is_read")).
		WithArgs(int64(1), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	if _, err := c.read(testkit.As(testkit.Request(t, "PUT", "/api/notify/read/1", nil), alice, map[string]string{"id": "1"})); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
}

func TestReadAll(t *testing.T) {
	c, mock := newComp(t)
	mock.ExpectQuery(testkit.Filter(entity.NotificationSchema, unreadInboxWhere)).
		WithArgs(int64(2), int64(0)).
		WillReturnRows(testkit.Rows(entity.NotificationSchema, noteRow(1, nil, 0), noteRow(4, int64(2), 0)))
	mock.ExpectExec(testkit.Update(entity.NotificationSchema, "is_read")).
		WithArgs(int64(1), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(testkit.Update(entity.NotificationSchema, "is_read")).
		WithArgs(int64(1), int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := c.readAll(testkit.As(testkit.Request(t, "PUT", "/api/notify/read-all", nil), alice, nil))
	if err != nil {
		t.Fatal(err)
	}
	if m := out.(map[string]any); m["count"] != 2 {
		t.Fatalf("result = %v", m)
	}
}

func TestDelete(t *testing.T) {
	c, mock := newComp(t)
	mock.ExpectQuery(testkit.Get(entity.NotificationSchema, testkit.Where("id"))).WithArgs(int64(4)).
		WillReturnRows(testkit.Rows(entity.NotificationSchema, noteRow(4, int64(2), 1)))
	mock.ExpectExec(testkit.Delete(entity.NotificationSchema)).WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := c.remove(testkit.As(testkit.Request(t, "DELETE", "/api/notify/delete/4", nil),
		testkit.Admin, map[string]string{"id": "4"})); err != nil {
		t.Fatal(err)
	}
}
