package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Message is a rendered HTML email.
type Message struct {
	From    Address
	To      []Address
	Cc      []Address
	ReplyTo *Address
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS is one of "mandatory", "opportunistic", "ssl" or "none".
	TLS     string
	Timeout time.Duration
}

// SMTPMailer sends through an authenticated SMTP server.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns a Mailer for cfg. Nothing is dialed until Send.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	switch strings.ToLower(m.cfg.TLS) {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// Send dials the server and delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := buildMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.cfg.Host, err)
	}
	return nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("from %q: %w", msg.From.Email, err)
	}
	for _, a := range msg.To {
		if err := out.AddToFormat(a.Name, a.Email); err != nil {
			return nil, fmt.Errorf("to %q: %w", a.Email, err)
		}
	}
	for _, a := range msg.Cc {
		if err := out.AddCcFormat(a.Name, a.Email); err != nil {
			return nil, fmt.Errorf("cc %q: %w", a.Email, err)
		}
	}
	if msg.ReplyTo != nil {
		if err := out.ReplyToFormat(msg.ReplyTo.Name, msg.ReplyTo.Email); err != nil {
			return nil, fmt.Errorf("reply-to %q: %w", msg.ReplyTo.Email, err)
		}
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetMessageID()
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return out, nil
}
