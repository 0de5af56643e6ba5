package contact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mutualangaco/sitio/internal/validation"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submittedAt = time.Date(2024, 3, 15, 9, 5, 7, 0, time.Local)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	// fail maps a recipient address to the error returned for messages sent to it.
	fail map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[msg.To[0].Email]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type recordingJournal struct {
	entries []Entry
	err     error
}

func (j *recordingJournal) Append(e Entry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func testOrg() Org {
	return Org{
		Name:        "Mutual Angaco",
		Sender:      Address{Name: "Mutual Angaco", Email: "contacto@mutualangaco.com.ar"},
		Destination: Address{Email: "info@mutualangaco.com.ar"},
		CC:          []Address{{Email: "contacto@mutualangaco.com.ar"}},
		Phone:       "+54 264 412-3456",
		WhatsApp:    "+54 9 264 412-3456",
		Email:       "info@mutualangaco.com.ar",
		Address:     "Av. Libertador 1234, Angaco, San Juan",
	}
}

func validSubmission() Submission {
	return Submission{
		Nombre:   "María José Pérez",
		Telefono: "(264) 412-3456",
		Email:    "maria@example.com",
		Asunto:   "consulta-general",
		Mensaje:  "Quisiera saber los requisitos para asociarme.",
	}
}

type harness struct {
	svc     *Service
	mailer  *recordingMailer
	journal *recordingJournal
	hook    *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, hook := test.NewNullLogger()
	h := &harness{
		mailer:  &recordingMailer{fail: map[string]error{}},
		journal: &recordingJournal{},
		hook:    hook,
	}
	h.svc = NewService(testOrg(), h.mailer,
		WithJournal(h.journal),
		WithLogger(logger),
		WithClock(func() time.Time { return submittedAt }),
	)
	return h
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSubmit(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Submit(context.Background(), validSubmission(), "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, SuccessMessage, res.Message)
	assert.False(t, res.Dropped)

	require.Len(t, h.journal.entries, 1)
	assert.Equal(t, "[2024-03-15 09:05:07] Nombre: María José Pérez | Email: maria@example.com | Teléfono: (264) 412-3456 | Asunto: consulta-general\n",
		h.journal.entries[0].Line())

	require.Len(t, h.mailer.sent, 2)

	notification := h.mailer.sent[0]
	assert.Equal(t, "[Contacto Web] Mutual Angaco - Consulta-general", notification.Subject)
	assert.Equal(t, []Address{{Email: "info@mutualangaco.com.ar"}}, notification.To)
	assert.Equal(t, testOrg().CC, notification.Cc)
	require.NotNil(t, notification.ReplyTo)
	assert.Equal(t, Address{Name: "María José Pérez", Email: "maria@example.com"}, *notification.ReplyTo)

	doc := parse(t, notification.HTML)
	assert.Equal(t, "María José Pérez", doc.Find("#nombre .field-value").Text())
	assert.Equal(t, "Consulta general", doc.Find("#asunto .field-value").Text())
	assert.Equal(t, "15/03/2024 09:05:07", doc.Find("#fecha .field-value").Text())
	assert.Equal(t, "203.0.113.9", doc.Find("#ip .field-value").Text())
	assert.Equal(t, 0, doc.Find("#newsletter").Length())

	confirmation := h.mailer.sent[1]
	assert.Equal(t, "Recibimos tu consulta - Mutual Angaco", confirmation.Subject)
	assert.Equal(t, "maria@example.com", confirmation.To[0].Email)
	assert.Nil(t, confirmation.ReplyTo)

	doc = parse(t, confirmation.HTML)
	assert.Equal(t, "María José Pérez", doc.Find("#nombre").Text())
	assert.Contains(t, doc.Find("#asunto").Text(), "Consulta general")
	assert.Contains(t, doc.Find("#fecha").Text(), "15/03/2024 09:05")
	assert.NotContains(t, doc.Find("#fecha").Text(), "09:05:07")
	assert.Equal(t, 3, doc.Find("#canales li").Length())
}

func TestSubmit_Newsletter(t *testing.T) {
	h := newHarness(t)
	sub := validSubmission()
	sub.Newsletter = true

	_, err := h.svc.Submit(context.Background(), sub, "203.0.113.9")
	require.NoError(t, err)

	doc := parse(t, h.mailer.sent[0].HTML)
	assert.Contains(t, doc.Find("#newsletter .field-value").Text(), "Desea recibir novedades")
}

func TestSubmit_Honeypot(t *testing.T) {
	h := newHarness(t)
	sub := validSubmission()
	sub.Website = "http://spam.example"

	res, err := h.svc.Submit(context.Background(), sub, "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Equal(t, SpamMessage, res.Message)

	assert.Empty(t, h.journal.entries)
	assert.Empty(t, h.mailer.sent)
	assert.Empty(t, h.hook.AllEntries())
}

func TestSubmit_HoneypotWhitespace(t *testing.T) {
	h := newHarness(t)
	sub := validSubmission()
	sub.Website = " "

	res, err := h.svc.Submit(context.Background(), sub, "")
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Empty(t, h.mailer.sent)
}

func TestSubmit_HoneypotSkipsValidation(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Submit(context.Background(), Submission{Website: "x"}, "")
	require.NoError(t, err)
	assert.True(t, res.Dropped)
}

func TestSubmit_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Submit(context.Background(), Submission{
		Nombre:   "Jo",
		Telefono: "abc",
		Email:    "no-es-un-email",
		Mensaje:  "corto",
	}, "203.0.113.9")

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"nombre", "telefono", "email", "asunto", "mensaje"}, verr.Names())
	assert.Equal(t, "Datos incompletos o inválidos: Nombre inválido, Teléfono inválido, Email inválido, Debe seleccionar un asunto, El mensaje debe tener al menos 10 caracteres", err.Error())

	assert.Empty(t, h.journal.entries)
	assert.Empty(t, h.mailer.sent)
}

func TestSubmit_MessageLength(t *testing.T) {
	h := newHarness(t)

	sub := validSubmission()
	sub.Mensaje = "123456789"
	_, err := h.svc.Submit(context.Background(), sub, "")
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"mensaje"}, verr.Names())

	sub.Mensaje = "1234567890"
	_, err = h.svc.Submit(context.Background(), sub, "")
	assert.NoError(t, err)
}

func TestSubmit_UnknownSubject(t *testing.T) {
	h := newHarness(t)
	sub := validSubmission()
	sub.Asunto = "hipotecas"

	_, err := h.svc.Submit(context.Background(), sub, "")
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("asunto"))
}

func TestSubmit_Sanitizes(t *testing.T) {
	h := newHarness(t)
	sub := validSubmission()
	sub.Mensaje = "Hola <script>alert(\\'x\\')</script>\nsegunda línea"

	_, err := h.svc.Submit(context.Background(), sub, "")
	require.NoError(t, err)

	html := h.mailer.sent[0].HTML
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Hola &lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;<br>\nsegunda línea")
}

// envelopeMailer builds every message the way SMTPMailer does before dialing.
type envelopeMailer struct {
	recordingMailer
}

func (m *envelopeMailer) Send(ctx context.Context, msg Message) error {
	if _, err := buildMsg(msg); err != nil {
		return err
	}
	return m.recordingMailer.Send(ctx, msg)
}

func TestSubmit_ApostropheAddress(t *testing.T) {
	mailer := &envelopeMailer{}
	logger, _ := test.NewNullLogger()
	journal := &recordingJournal{}
	svc := NewService(testOrg(), mailer, WithJournal(journal), WithLogger(logger))

	sub := validSubmission()
	sub.Nombre = "Ana O Brien"
	sub.Email = "o'brien@example.com"

	_, err := svc.Submit(context.Background(), sub, "")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 2)

	notification, confirmation := mailer.sent[0], mailer.sent[1]
	assert.Equal(t, "o'brien@example.com", notification.ReplyTo.Email)
	assert.Equal(t, "o'brien@example.com", confirmation.To[0].Email)
	assert.Contains(t, notification.HTML, "o&#039;brien@example.com")
	assert.Equal(t, "o&#039;brien@example.com", journal.entries[0].Email)
}

func TestSubmit_NotificationFails(t *testing.T) {
	h := newHarness(t)
	h.mailer.fail["info@mutualangaco.com.ar"] = errors.New("connection refused")

	_, err := h.svc.Submit(context.Background(), validSubmission(), "")
	require.ErrorIs(t, err, ErrMailTransport)

	assert.Len(t, h.journal.entries, 1, "the journal line stays even if mail fails")
	assert.Empty(t, h.mailer.sent)
}

func TestSubmit_ConfirmationFails(t *testing.T) {
	h := newHarness(t)
	h.mailer.fail["maria@example.com"] = errors.New("mailbox unavailable")

	res, err := h.svc.Submit(context.Background(), validSubmission(), "")
	require.NoError(t, err)
	assert.Equal(t, SuccessMessage, res.Message)
	assert.Len(t, h.mailer.sent, 1)

	var warned bool
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "confirmation email failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSubmit_JournalFails(t *testing.T) {
	h := newHarness(t)
	h.journal.err = errors.New("disk full")

	_, err := h.svc.Submit(context.Background(), validSubmission(), "")
	require.NoError(t, err)
	assert.Len(t, h.mailer.sent, 2)
}

func TestFileJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	j := NewFileJournal(dir)

	e := Entry{Time: submittedAt, Nombre: "Ana", Email: "ana@example.com", Telefono: "123", Asunto: "otro"}
	require.NoError(t, j.Append(e))
	require.NoError(t, j.Append(e))

	next := e
	next.Time = submittedAt.AddDate(0, 1, 0)
	require.NoError(t, j.Append(next))

	data, err := os.ReadFile(filepath.Join(dir, "contactos_2024-03.log"))
	require.NoError(t, err)
	assert.Equal(t, e.Line()+e.Line(), string(data))

	_, err = os.Stat(filepath.Join(dir, "contactos_2024-04.log"))
	assert.NoError(t, err)
}

func TestSubjectLabel(t *testing.T) {
	assert.Equal(t, "Consulta general", SubjectLabel("consulta-general"))
	assert.Equal(t, "Préstamos", SubjectLabel("préstamos"))
	assert.Equal(t, "", SubjectLabel(""))
}

func TestBuildMsg(t *testing.T) {
	msg := Message{
		From:    testOrg().Sender,
		To:      []Address{testOrg().Destination},
		Cc:      testOrg().CC,
		ReplyTo: &Address{Name: "Ana", Email: "ana@example.com"},
		Subject: "Prueba",
		HTML:    "<p>hola</p>",
	}
	out, err := buildMsg(msg)
	require.NoError(t, err)
	rcpts, err := out.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"info@mutualangaco.com.ar", "contacto@mutualangaco.com.ar"}, rcpts)

	msg.ReplyTo = &Address{Name: "Ana O'Brien", Email: "o'brien@example.com"}
	_, err = buildMsg(msg)
	require.NoError(t, err)

	msg.To = []Address{{Email: "no es una direccion"}}
	_, err = buildMsg(msg)
	assert.Error(t, err)
}
