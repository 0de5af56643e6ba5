package contact

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mutualangaco/sitio/internal/validation"
)

// Submission is one contact form post.
type Submission struct {
	Nombre     string `schema:"nombre" validate:"required,min=3,nombre" msg:"Nombre inválido"`
	Telefono   string `schema:"telefono" validate:"required,telefono" msg:"Teléfono inválido"`
	Email      string `schema:"email" validate:"required,email,email_tld" msg:"Email inválido"`
	Asunto     string `schema:"asunto" validate:"required,asunto" msg:"Debe seleccionar un asunto"`
	Mensaje    string `schema:"mensaje" validate:"required,min=10" msg:"El mensaje debe tener al menos 10 caracteres"`
	Newsletter bool   `schema:"newsletter"`

	// Website is the hidden honeypot field. People never fill it in.
	Website string `schema:"website"`
}

// IsSpam reports whether the honeypot was filled in.
func (s Submission) IsSpam() bool {
	return s.Website != ""
}

func (s Submission) normalized() Submission {
	s.Nombre = validation.Normalize(s.Nombre)
	s.Telefono = validation.Normalize(s.Telefono)
	s.Email = validation.Normalize(s.Email)
	s.Asunto = validation.Normalize(s.Asunto)
	s.Mensaje = validation.Normalize(s.Mensaje)
	return s
}

// sanitized returns the submission with every text field safe to embed in
// HTML and log lines.
func (s Submission) sanitized() Submission {
	s.Nombre = validation.Sanitize(s.Nombre)
	s.Telefono = validation.Sanitize(s.Telefono)
	s.Email = validation.Sanitize(s.Email)
	s.Asunto = validation.Sanitize(s.Asunto)
	s.Mensaje = validation.Sanitize(s.Mensaje)
	s.Website = ""
	return s
}

// SubjectLabel turns a subject key such as "consulta-general" into
// "Consulta general".
func SubjectLabel(asunto string) string {
	return upperFirst(strings.ReplaceAll(asunto, "-", " "))
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
