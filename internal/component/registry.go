// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At startup cmd/web calls
// Mount, which hands every component its Deps through Init and then lets it
// register its API routes, in component-name order so route precedence is
// deterministic across builds.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yanizio/adminkit/internal/web"
)

// Registrar accepts route registrations.  *router.Router satisfies it.
type Registrar interface {
	Register(method, template string, h web.Handler) error
}

// Initializer receives shared resources once, before Routes.
type Initializer interface {
	Init(Deps) error
}

// Component contract.  Routes registers every API endpoint the component
// serves, e.g.
//
//	r.Register("GET", "/api/user/list", c.list)
//	r.Register("PUT", "/api/user/edit/{id:int}", c.edit)
type Component interface {
	Name() string
	Routes(r Registrar) error
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and registers its routes.
func Mount(r Registrar, deps Deps) error {
	for _, c := range All() {
		if err := c.Init(deps); err != nil {
			return fmt.Errorf("component %s init: %w", c.Name(), err)
		}
		if err := c.Routes(r); err != nil {
			return fmt.Errorf("component %s routes: %w", c.Name(), err)
		}
	}
	return nil
}
