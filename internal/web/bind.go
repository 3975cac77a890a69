// internal/web/bind.go
//
// Bind: decode the request body into a struct and validate it.
//
// Context
// -------
// Components declare their payloads as structs with `json` and `validate`
// tags.  Bind re-encodes the parsed body, decodes it into dst, and runs the
// shared validator.  The first failing field becomes a 400 with a readable
// message keyed by its JSON name.
//
// Custom tags
// -----------
//   • username – 3–32 of [A-Za-z0-9_]
//   • phone    – 11-digit mainland mobile, 1[3-9]…
//   • password – 6–20 chars with at least one letter and one digit
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/adminkit/internal/apperr"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
	phoneRe    = regexp.MustCompile(`^1[3-9]\d{9}$`)

	vOnce sync.Once
	v     *validator.Validate
)

// Validator returns the shared instance with the custom tags registered.
func Validator() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phoneRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return ValidPassword(fl.Field().String())
		})
	})
	return v
}

// ValidPassword reports whether p is 6–20 characters with a letter and a
// digit.
func ValidPassword(p string) bool {
	n := len([]rune(p))
	if n < 6 || n > 20 {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return letter && digit
}

// Bind decodes r.Body into dst and validates it.
func (r *Request) Bind(dst any) error {
	raw, err := json.Marshal(r.Body)
	if err != nil {
		return apperr.Invalid("malformed request body")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return invalidf("%s has the wrong type", te.Field)
		}
		return apperr.Invalid("malformed request body")
	}
	return Validate(dst)
}

// Validate runs the shared validator and maps the first failure to a 400.
func Validate(dst any) error {
	err := Validator().Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Invalid(err.Error())
	}
	return apperr.Invalid(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "username":
		return "username must be 3-32 letters, digits, or underscores"
	case "phone":
		return "invalid phone number"
	case "email":
		return "invalid email address"
	case "password":
		return "password must be 6-20 characters with letters and digits"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", f, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", f)
}
