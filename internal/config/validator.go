// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree.  Any validation error aborts
// startup, so the binary never runs with partial or malformed configuration.
//
// Besides the built-in tags on the model, one custom rule is registered
// here: `dsn_secret`, which requires the DSN to carry exactly one %s verb
// whenever a separate password is configured.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(databaseRules, Database{})
	return val
}

// databaseRules enforces the DSN / password pairing.
func databaseRules(sl validator.StructLevel) {
	db := sl.Current().Interface().(Database)
	if db.Password != "" && strings.Count(db.DSN, "%s") != 1 {
		sl.ReportError(db.DSN, "DSN", "dsn", "dsn_secret", "")
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
