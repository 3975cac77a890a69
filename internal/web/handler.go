package web

import (
	"fmt"

	"github.com/yanizio/adminkit/internal/apperr"
)

// Handler serves one route.  The returned value becomes the envelope's
// data; a Coded result picks its own code.  Errors are classified through
// internal/apperr.
type Handler func(*Request) (any, error)

// Coded is a handler result with an explicit code.  The envelope message
// is "success" for 200 and "failed" otherwise.
type Coded struct {
	Code int
	Data any
}

func invalidf(format string, args ...any) error {
	return apperr.Invalid(fmt.Sprintf(format, args...))
}
