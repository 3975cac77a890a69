package component

import (
	"errors"
	"testing"

	"github.com/yanizio/adminkit/internal/web"
)

type recorder struct{ routes []string }

func (r *recorder) Register(method, template string, _ web.Handler) error {
	r.routes = append(r.routes, method+" "+template)
	return nil
}

type fake struct {
	name    string
	initErr error
	inited  bool
}

func (f *fake) Name() string { return f.name }

func (f *fake) Init(Deps) error {
	f.inited = true
	return f.initErr
}

func (f *fake) Routes(r Registrar) error {
	return r.Register("GET", "/api/"+f.name+"/list", nil)
}

func TestMountOrdersByName(t *testing.T) {
	mu.Lock()
	saved := registry
	registry = map[string]Component{}
	mu.Unlock()
	t.Cleanup(func() { mu.Lock(); registry = saved; mu.Unlock() })

	b, a := &fake{name: "beta"}, &fake{name: "alpha"}
	Register(b)
	Register(a)

	rec := &recorder{}
	if err := Mount(rec, Deps{}); err != nil {
		t.Fatal(err)
	}
	if len(rec.routes) != 2 || rec.routes[0] != "GET /api/alpha/list" || !a.inited || !b.inited {
		t.Fatalf("routes = %v", rec.routes)
	}

	Register(&fake{name: "broken", initErr: errors.New("no")})
	if err := Mount(&recorder{}, Deps{}); err == nil {
		t.Fatal("init error swallowed")
	}
}
