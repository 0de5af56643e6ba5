// Package contact handles the site's contact form: it rejects spam and
// invalid input, journals accepted submissions and mails them to the
// organization with a receipt back to the visitor.
package contact

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mutualangaco/sitio/internal/validation"
	"github.com/sirupsen/logrus"
)

const (
	SuccessMessage = "¡Tu consulta fue enviada con éxito! Te responderemos a la brevedad."

	// SpamMessage is returned when the honeypot is filled in. It reads like
	// a success on purpose.
	SpamMessage = "Mensaje enviado correctamente"
)

// ErrMailTransport means the notification email could not be handed to the
// mail server.
var ErrMailTransport = errors.New("mail transport failed")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Org describes the organization that receives the submissions.
type Org struct {
	Name        string
	Sender      Address
	Destination Address
	CC          []Address
	Phone       string
	WhatsApp    string
	Email       string
	Address     string
}

// Result is returned to the visitor.
type Result struct {
	Message string
	// Dropped is set when the submission was discarded as spam.
	Dropped bool
}

// Service processes contact submissions.
type Service struct {
	org       Org
	validator *validation.Validator
	mailer    Mailer
	journal   Journal
	logger    logrus.FieldLogger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithJournal sets where accepted submissions are recorded. Without one
// nothing is journaled.
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSubjects restricts the accepted asunto values.
func WithSubjects(subjects []string) Option {
	return func(s *Service) { s.validator = validation.New(subjects) }
}

func NewService(org Org, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		org:       org,
		validator: validation.New(validation.DefaultSubjects),
		mailer:    mailer,
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates sub and delivers it. remoteAddr is the visitor's IP as
// shown in the notification email.
//
// A failed journal append is logged and does not stop delivery. A failed
// confirmation email is logged and does not fail the submission.
func (s *Service) Submit(ctx context.Context, sub Submission, remoteAddr string) (Result, error) {
	if sub.IsSpam() {
		return Result{Message: SpamMessage, Dropped: true}, nil
	}

	sub = sub.normalized()
	if err := s.validator.Struct(sub); err != nil {
		return Result{}, err
	}
	clean := sub.sanitized()
	now := s.now()

	log := s.logger.WithFields(logrus.Fields{
		"email":  clean.Email,
		"asunto": clean.Asunto,
		"ip":     remoteAddr,
	})

	if s.journal != nil {
		err := s.journal.Append(Entry{
			Time:     now,
			Nombre:   clean.Nombre,
			Email:    clean.Email,
			Telefono: clean.Telefono,
			Asunto:   clean.Asunto,
		})
		if err != nil {
			log.WithError(err).Error("could not journal contact submission")
		}
	}

	notification, err := s.notification(sub, clean, now, remoteAddr)
	if err != nil {
		return Result{}, err
	}
	if err := s.mailer.Send(ctx, notification); err != nil {
		log.WithError(err).Error("notification email failed")
		return Result{}, fmt.Errorf("%w: %v", ErrMailTransport, err)
	}

	confirmation, err := s.confirmation(sub, clean, now)
	if err == nil {
		err = s.mailer.Send(ctx, confirmation)
	}
	if err != nil {
		log.WithError(err).Warn("confirmation email failed")
	}

	log.Info("contact submission delivered")
	return Result{Message: SuccessMessage}, nil
}

type emailData struct {
	Org        Org
	Nombre     template.HTML
	Email      template.HTML
	Telefono   template.HTML
	Asunto     template.HTML
	Mensaje    template.HTML
	Newsletter bool
	Fecha      string
	IP         string
}

// newEmailData wraps the already escaped fields so the templates emit them
// as they are.
func (s *Service) newEmailData(sub Submission, fecha string) emailData {
	return emailData{
		Org:        s.org,
		Nombre:     template.HTML(sub.Nombre),
		Email:      template.HTML(sub.Email),
		Telefono:   template.HTML(sub.Telefono),
		Asunto:     template.HTML(SubjectLabel(sub.Asunto)),
		Mensaje:    template.HTML(nl2br(sub.Mensaje)),
		Newsletter: sub.Newsletter,
		Fecha:      fecha,
	}
}

// notification and confirmation address the envelope with the validated
// submission and fill the body from its escaped copy.
func (s *Service) notification(sub, clean Submission, now time.Time, ip string) (Message, error) {
	data := s.newEmailData(clean, now.Format("02/01/2006 15:04:05"))
	data.IP = ip

	body, err := render("notificacion.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    s.org.Sender,
		To:      []Address{s.org.Destination},
		Cc:      s.org.CC,
		ReplyTo: &Address{Name: sub.Nombre, Email: sub.Email},
		Subject: fmt.Sprintf("[Contacto Web] %s - %s", s.org.Name, upperFirst(sub.Asunto)),
		HTML:    body,
	}, nil
}

func (s *Service) confirmation(sub, clean Submission, now time.Time) (Message, error) {
	body, err := render("confirmacion.html", s.newEmailData(clean, now.Format("02/01/2006 15:04")))
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    s.org.Sender,
		To:      []Address{{Name: sub.Nombre, Email: sub.Email}},
		Subject: "Recibimos tu consulta - " + s.org.Name,
		HTML:    body,
	}, nil
}

func render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func nl2br(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>\n")
}
