// internal/component/deps.go
package component

import (
	"time"

	"github.com/yanizio/adminkit/internal/entity"
)

// ACLCache is the invalidation side of *acl.Store.
type ACLCache interface {
	Invalidate(roleID int64)
	InvalidateAll()
}

// TokenIssuer mints bearer tokens.  *auth.Signer satisfies it.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, time.Time, error)
}

// Deps exposes shared resources to Components during Init.
type Deps struct {
	Store  *entity.Store
	ACL    ACLCache
	Tokens TokenIssuer
	Now    func() time.Time
}

// Clock returns Now, or time.Now when unset.
func (d Deps) Clock() func() time.Time {
	if d.Now == nil {
		return time.Now
	}
	return d.Now
}
