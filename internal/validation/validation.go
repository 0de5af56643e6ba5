// Package validation holds the field rules shared by the contact form and the
// news editor. Rules are expressed as go-playground/validator tags; each field
// carries the Spanish message shown to the visitor in a `msg` tag.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var (
	nameRe     = regexp.MustCompile(`^[\p{L}\p{M} ]+$`)
	phoneRe    = regexp.MustCompile(`^[0-9 \-+()]+$`)
	emailTLDRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// DefaultSubjects is the fixed set of contact subjects offered by the form.
var DefaultSubjects = []string{
	"consulta-general",
	"prestamos",
	"subsidios",
	"seguros",
	"turismo",
	"asociarse",
	"reclamos",
	"otro",
}

// Field is one violated rule.
type Field struct {
	Name    string `json:"campo"`
	Message string `json:"mensaje"`
}

// Error is the aggregate of every field that failed. Each field appears once,
// in declaration order.
type Error struct {
	Fields []Field
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "Datos incompletos o inválidos: " + strings.Join(msgs, ", ")
}

// Has reports whether the named field failed.
func (e *Error) Has(name string) bool {
	for _, f := range e.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Names lists the failed fields.
func (e *Error) Names() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Validator checks structs tagged with the site's rules.
type Validator struct {
	v        *validator.Validate
	subjects map[string]struct{}
}

// New returns a Validator accepting the given contact subjects.
// An empty list accepts any non-empty subject.
func New(subjects []string) *Validator {
	val := &Validator{
		v:        validator.New(),
		subjects: make(map[string]struct{}, len(subjects)),
	}
	for _, s := range subjects {
		val.subjects[s] = struct{}{}
	}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("schema"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs.
	_ = val.v.RegisterValidation("nombre", func(fl validator.FieldLevel) bool {
		return IsName(fl.Field().String())
	})
	_ = val.v.RegisterValidation("telefono", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	_ = val.v.RegisterValidation("email_tld", func(fl validator.FieldLevel) bool {
		return emailTLDRe.MatchString(fl.Field().String())
	})
	_ = val.v.RegisterValidation("asunto", func(fl validator.FieldLevel) bool {
		return val.IsSubject(fl.Field().String())
	})

	return val
}

// IsSubject reports whether s is one of the configured subjects.
func (v *Validator) IsSubject(s string) bool {
	if len(v.subjects) == 0 {
		return s != ""
	}
	_, ok := v.subjects[s]
	return ok
}

// Struct validates s and returns *Error listing every failed field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := &Error{}
	for _, fe := range fieldErrs {
		if out.Has(fe.Field()) {
			continue
		}
		msg := fe.Field() + " inválido"
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if m := sf.Tag.Get("msg"); m != "" {
				msg = m
			}
		}
		out.Fields = append(out.Fields, Field{Name: fe.Field(), Message: msg})
	}
	return out
}

// Normalize trims s and composes accents into NFC so "José" matches "José".
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IsName reports whether s holds only letters (accented ones included) and spaces.
func IsName(s string) bool {
	return nameRe.MatchString(s)
}

// IsPhone reports whether s holds only digits, spaces, hyphens, plus signs and parentheses.
func IsPhone(s string) bool {
	return phoneRe.MatchString(s)
}
