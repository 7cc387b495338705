// Package validation checks single form values against their semantic kind.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindText  Kind = "text"
	KindEmail Kind = "email"
	KindURL   Kind = "url"
)

const (
	MsgRequired = "field is required"
	MsgEmail    = "enter a valid email"
	MsgURL      = "enter a valid URL"
)

// Rule describes how one field is checked.
type Rule struct {
	Kind     Kind
	Required bool
}

type Verdict struct {
	Valid   bool
	Message string
}

var (
	validate   = validator.New()
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func ok() Verdict { return Verdict{Valid: true} }
func invalid(msg string) Verdict { return Verdict{Valid: false, Message: msg} }

// Check applies the rule to value. Required-ness is checked first, then the
// kind check, which only applies to non-empty values.
func Check(r Rule, value string) Verdict {
	if r.Required && validate.Var(strings.TrimSpace(value), "required") != nil {
		return invalid(MsgRequired)
	}
	if value == "" {
		return ok()
	}

	switch r.Kind {
	case KindEmail:
		if !emailRegex.MatchString(value) {
			return invalid(MsgEmail)
		}
	case KindURL:
		if validate.Var(strings.TrimSpace(value), "url") != nil {
			return invalid(MsgURL)
		}
	}
	return ok()
}
