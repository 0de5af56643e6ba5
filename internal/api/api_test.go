package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mutualangaco/sitio"
	"github.com/mutualangaco/sitio/internal/contact"
	"github.com/mutualangaco/sitio/internal/media"
	"github.com/mutualangaco/sitio/internal/news"
	"github.com/mutualangaco/sitio/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	mu   sync.Mutex
	sent []contact.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg contact.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type site struct {
	handler  http.Handler
	root     string
	newsFile string
	mailer   *stubMailer
	store    *news.Store
}

func newSite(t *testing.T) *site {
	t.Helper()
	logger, _ := test.NewNullLogger()
	root := t.TempDir()

	s := &site{
		root:     root,
		newsFile: filepath.Join(root, "data", "noticias.json"),
		mailer:   &stubMailer{},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(s.newsFile), 0o755))

	images := media.NewStore(root, media.DefaultDir, logger)
	s.store = news.NewStore(s.newsFile, images, news.WithLogger(logger))
	require.NoError(t, s.store.Seed(context.Background(), news.DefaultRecords()))

	svc := contact.NewService(contact.Org{
		Name:        "Mutual Angaco",
		Sender:      contact.Address{Email: "contacto@mutualangaco.com.ar"},
		Destination: contact.Address{Email: "info@mutualangaco.com.ar"},
	}, s.mailer,
		contact.WithJournal(contact.NewFileJournal(filepath.Join(root, "logs"))),
		contact.WithLogger(logger),
	)

	app := sitio.NewApp().WithLogger(logger).WithMaskInternalErrors()
	Register(app, Deps{Contact: svc, News: s.store, Logger: logger})
	s.handler = app.Handler()
	return s
}

func (s *site) fileBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(s.newsFile)
	require.NoError(t, err)
	return data
}

func contactForm() map[string]string {
	return map[string]string{
		"nombre":   "Juan Pérez",
		"telefono": "264 412-3456",
		"email":    "juan@example.com",
		"asunto":   "prestamos",
		"mensaje":  "Quiero información sobre préstamos personales.",
	}
}

func updateForm(id string) map[string]string {
	return map[string]string{
		"action":    "update",
		"id":        id,
		"titulo":    "Nuevo horario de atención",
		"resumen":   "Atendemos también los sábados",
		"contenido": "Desde abril la sede central abre los sábados de 9 a 13.",
		"categoria": "Institucional",
		"fecha":     "2024-04-01",
		"destacada": "1",
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func TestContacto(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().POST("/api/contacto").
		WithFields(contactForm()).
		WithField("newsletter", "on").
		WithRemoteAddr("198.51.100.4:51234").
		Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res sitio.Reply
	testutil.DecodeJSON(t, w, &res)
	assert.True(t, res.Success)
	assert.Equal(t, contact.SuccessMessage, res.Message)

	require.Len(t, s.mailer.sent, 2)
	assert.Contains(t, s.mailer.sent[0].HTML, "198.51.100.4")
	assert.Contains(t, s.mailer.sent[0].HTML, "Desea recibir novedades")

	logs, err := filepath.Glob(filepath.Join(s.root, "logs", "contactos_*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestContacto_MethodNotAllowed(t *testing.T) {
	s := newSite(t)
	w := testutil.NewRequest().GET("/api/contacto").Serve(s.handler)
	res := testutil.AssertJSONError(t, w, "method_not_allowed")
	assert.Equal(t, "Método no permitido", res.Message)
}

func TestContacto_Honeypot(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().POST("/api/contacto").
		WithFields(contactForm()).
		WithField("website", "http://spam.example").
		Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res sitio.Reply
	testutil.DecodeJSON(t, w, &res)
	assert.True(t, res.Success)
	assert.Empty(t, s.mailer.sent)

	_, err := os.Stat(filepath.Join(s.root, "logs"))
	assert.True(t, os.IsNotExist(err))
}

func TestContacto_Invalid(t *testing.T) {
	s := newSite(t)
	form := contactForm()
	form["mensaje"] = "123456789"
	form["email"] = "juan@"

	w := testutil.NewRequest().POST("/api/contacto").WithFields(form).Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "Datos incompletos o inválidos: Email inválido, El mensaje debe tener al menos 10 caracteres", res.Message)
	assert.Equal(t, map[string]string{
		"email":   "Email inválido",
		"mensaje": "El mensaje debe tener al menos 10 caracteres",
	}, res.Campos)
	assert.Empty(t, s.mailer.sent)
}

func TestContacto_MailFailure(t *testing.T) {
	s := newSite(t)
	s.mailer.err = errors.New("dial tcp: connection refused")

	w := testutil.NewRequest().POST("/api/contacto").WithFields(contactForm()).Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "unavailable")
	assert.Equal(t, "Error al enviar el email. Por favor intentá nuevamente.", res.Message)
}

func TestNoticias_Get(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().GET("/api/noticias").WithQuery("action", "get").Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res ListNoticiasResponse
	testutil.DecodeJSON(t, w, &res)
	assert.True(t, res.Success)
	assert.Len(t, res.Noticias, news.RecordCount)
	assert.Equal(t, "1.0", res.Configuracion.Version)
}

func TestNoticias_GetOne(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().GET("/api/noticias").
		WithQuery("action", "get_one").WithQuery("id", "2").
		Serve(s.handler)
	testutil.AssertStatus(t, w, http.StatusOK)
	var res NoticiaResponse
	testutil.DecodeJSON(t, w, &res)
	require.NotNil(t, res.Noticia)
	assert.Equal(t, "Apertura de Sucursal en Pocito", res.Noticia.Titulo)

	w = testutil.NewRequest().GET("/api/noticias").
		WithQuery("action", "get_one").WithQuery("id", "dos").
		Serve(s.handler)
	er := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "ID de noticia inválido", er.Message)

	w = testutil.NewRequest().GET("/api/noticias").
		WithQuery("action", "get_one").WithQuery("id", "9").
		Serve(s.handler)
	er = testutil.AssertJSONError(t, w, "not_found")
	assert.Equal(t, "Noticia no encontrada", er.Message)
}

func TestNoticias_UnknownAction(t *testing.T) {
	s := newSite(t)

	for _, action := range []string{"", "delete"} {
		w := testutil.NewRequest().GET("/api/noticias").WithQuery("action", action).Serve(s.handler)
		res := testutil.AssertJSONError(t, w, "invalid_argument")
		assert.Equal(t, "Acción no válida", res.Message)
	}
}

func TestNoticias_Update(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().POST("/api/noticias").WithFields(updateForm("3")).Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res NoticiaResponse
	testutil.DecodeJSON(t, w, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "Noticia actualizada correctamente", res.Message)
	require.NotNil(t, res.Noticia)
	assert.Equal(t, "nuevo-horario-de-atencin", res.Noticia.Slug)
	assert.True(t, res.Noticia.Destacada)

	doc, err := s.store.ReadAll(context.Background())
	require.NoError(t, err)
	featured, ok := doc.Featured()
	require.True(t, ok)
	assert.Equal(t, 3, featured.ID)
	for _, r := range doc.Noticias {
		assert.Equal(t, r.ID == 3, r.Destacada, "record %d", r.ID)
	}
}

func TestNoticias_UpdateWithImage(t *testing.T) {
	s := newSite(t)
	data := pngBytes(t)

	w := testutil.NewRequest().POST("/api/noticias").
		WithFields(updateForm("1")).
		WithFile("imagen", "foto.png", data).
		Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res NoticiaResponse
	testutil.DecodeJSON(t, w, &res)
	require.NotNil(t, res.Noticia)
	assert.True(t, strings.HasPrefix(res.Noticia.Imagen, "assets/imagenes/noticias/noticia-1-"), res.Noticia.Imagen)

	stored, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(res.Noticia.Imagen)))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestNoticias_UpdateImageTooLarge(t *testing.T) {
	s := newSite(t)
	before := s.fileBytes(t)

	big := append(pngBytes(t), make([]byte, 3<<20)...)
	w := testutil.NewRequest().POST("/api/noticias").
		WithFields(updateForm("2")).
		WithFile("imagen", "grande.png", big).
		Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "resource_exhausted")
	assert.Equal(t, "La imagen no puede pesar más de 2MB", res.Message)
	assert.Equal(t, before, s.fileBytes(t))
}

func TestNoticias_UpdateSpoofedImage(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().POST("/api/noticias").
		WithFields(updateForm("2")).
		WithFile("imagen", "foto.jpg", []byte("<?php system($_GET['c']); ?>")).
		Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "Solo se permiten imágenes JPG, PNG o WebP", res.Message)
}

func TestNoticias_UpdateInvalidID(t *testing.T) {
	for _, id := range []string{"0", "5", ""} {
		t.Run(id, func(t *testing.T) {
			s := newSite(t)
			before := s.fileBytes(t)

			w := testutil.NewRequest().POST("/api/noticias").WithFields(updateForm(id)).Serve(s.handler)

			res := testutil.AssertJSONError(t, w, "invalid_argument")
			assert.Equal(t, "ID de noticia inválido", res.Message)
			assert.Equal(t, before, s.fileBytes(t))
		})
	}
}

func TestNoticias_UpdateMissingField(t *testing.T) {
	s := newSite(t)
	form := updateForm("1")
	form["contenido"] = "   "

	w := testutil.NewRequest().POST("/api/noticias").WithFields(form).Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "Todos los campos son obligatorios", res.Message)
	assert.Equal(t, map[string]string{"contenido": "es obligatorio"}, res.Campos)
}

func TestNoticias_UpdateRejectsUnknownFields(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().POST("/api/noticias").
		WithFields(updateForm("1")).
		WithField("slug", "elegido-a-mano").
		Serve(s.handler)

	testutil.AssertJSONError(t, w, "invalid_argument")
}

func TestNoticias_UpdateBadFlag(t *testing.T) {
	s := newSite(t)
	form := updateForm("1")
	form["destacada"] = "quizas"

	w := testutil.NewRequest().POST("/api/noticias").WithFields(form).Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Contains(t, res.Campos, "destacada")
}

func TestNoticias_UpdateRequiresPost(t *testing.T) {
	s := newSite(t)
	w := testutil.NewRequest().GET("/api/noticias").WithQuery("action", "update").Serve(s.handler)
	testutil.AssertJSONError(t, w, "method_not_allowed")
}

func TestNoticias_StoreUnavailable(t *testing.T) {
	s := newSite(t)
	require.NoError(t, os.Remove(s.newsFile))

	w := testutil.NewRequest().GET("/api/noticias").WithQuery("action", "get").Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "unavailable")
	assert.Equal(t, "No se pudieron leer las noticias", res.Message)
}

func TestNoticias_StoreCorrupt(t *testing.T) {
	s := newSite(t)
	require.NoError(t, os.WriteFile(s.newsFile, []byte("{"), 0o644))

	w := testutil.NewRequest().GET("/api/noticias").WithQuery("action", "get").Serve(s.handler)

	res := testutil.AssertJSONError(t, w, "internal")
	assert.Equal(t, "No se pudieron leer las noticias", res.Message, "classified errors are not masked")
}

func TestServicios_Cuota(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().GET("/api/servicios").
		WithQuery("action", "cuota").
		WithQuery("monto", "100000").
		WithQuery("meses", "12").
		WithQuery("tasa", "60").
		Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res CuotaResponse
	testutil.DecodeJSON(t, w, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 11282.54, res.Cuota)
	assert.Equal(t, 135390.49, res.Total)
	assert.NotEmpty(t, res.Texto)
}

func TestServicios_CuotaInvalid(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().GET("/api/servicios").
		WithQuery("action", "cuota").
		WithQuery("meses", "12").
		Serve(s.handler)
	res := testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Contains(t, res.Campos, "monto")

	w = testutil.NewRequest().GET("/api/servicios").
		WithQuery("action", "cuota").
		WithQuery("monto", "1000").
		WithQuery("meses", "500").
		Serve(s.handler)
	res = testutil.AssertJSONError(t, w, "invalid_argument")
	assert.Equal(t, "La cantidad de cuotas debe estar entre 1 y 120", res.Message)
}

func TestServicios_Requisitos(t *testing.T) {
	s := newSite(t)

	w := testutil.NewRequest().GET("/api/servicios").
		WithQuery("action", "requisitos").
		WithQuery("servicio", "seguros").
		Serve(s.handler)

	testutil.AssertStatus(t, w, http.StatusOK)
	var res RequisitosResponse
	testutil.DecodeJSON(t, w, &res)
	assert.Equal(t, []string{"DNI", "Formulario de adhesión"}, res.Documentos)
}

func TestUnknownService(t *testing.T) {
	s := newSite(t)
	w := testutil.NewRequest().GET("/api/afiliados").Serve(s.handler)
	testutil.AssertJSONError(t, w, "not_found")
}

func TestParseID(t *testing.T) {
	assert.Equal(t, 3, parseID(" 3 "))
	assert.Equal(t, 0, parseID("tres"))
	assert.Equal(t, 0, parseID(""))
}
