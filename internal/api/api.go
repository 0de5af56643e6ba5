// Package api mounts the site's services on a sitio.App:
//
//	/api/contacto             POST               contact form
//	/api/noticias?action=...  get, get_one, update
//	/api/servicios?action=... cuota, requisitos
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mutualangaco/sitio"
	"github.com/mutualangaco/sitio/internal/contact"
	"github.com/mutualangaco/sitio/internal/loans"
	"github.com/mutualangaco/sitio/internal/news"
	"github.com/sirupsen/logrus"
)

// Contact submits contact form posts.
type Contact interface {
	Submit(ctx context.Context, sub contact.Submission, remoteAddr string) (contact.Result, error)
}

// News reads and edits the news document.
type News interface {
	ReadAll(ctx context.Context) (*news.Document, error)
	Get(ctx context.Context, id int) (*news.Record, error)
	Update(ctx context.Context, id int, f news.Fields, img *news.Image) (*news.Record, error)
}

// Deps are the services behind the endpoints.
type Deps struct {
	Contact Contact
	News    News
	Logger  logrus.FieldLogger
}

// Register mounts every endpoint on app and installs the error mapping.
func Register(app *sitio.App, d Deps) {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	app.WithErrorTransformer(ErrorTransformer(d.Logger))

	h := &handlers{deps: d}

	app.Service("contacto").Register("", sitio.Exec(h.contacto))

	noticias := app.Service("noticias")
	noticias.Register("get", sitio.Query(h.listNoticias))
	noticias.Register("get_one", sitio.Query(h.getNoticia))
	noticias.Register("update", sitio.Exec(h.updateNoticia).Strict())

	servicios := app.Service("servicios")
	servicios.Register("cuota", sitio.Query(h.cuota))
	servicios.Register("requisitos", sitio.Query(h.requisitos))
}

type handlers struct {
	deps Deps
}

// ContactoRequest is the contact form as posted by the site.
type ContactoRequest struct {
	Nombre     string `schema:"nombre"`
	Telefono   string `schema:"telefono"`
	Email      string `schema:"email"`
	Asunto     string `schema:"asunto"`
	Mensaje    string `schema:"mensaje"`
	Newsletter string `schema:"newsletter"`
	Website    string `schema:"website"`
}

func (h *handlers) contacto(ctx context.Context, req ContactoRequest) (sitio.Reply, error) {
	res, err := h.deps.Contact.Submit(ctx, contact.Submission{
		Nombre:     req.Nombre,
		Telefono:   req.Telefono,
		Email:      req.Email,
		Asunto:     req.Asunto,
		Mensaje:    req.Mensaje,
		Newsletter: req.Newsletter != "",
		Website:    req.Website,
	}, sitio.RemoteAddr(ctx))
	if err != nil {
		return sitio.Reply{}, err
	}
	return sitio.OK(res.Message), nil
}

type ListNoticiasRequest struct{}

type ListNoticiasResponse struct {
	sitio.Reply
	Noticias      []news.Record      `json:"noticias"`
	Configuracion news.Configuracion `json:"configuracion"`
}

func (h *handlers) listNoticias(ctx context.Context, _ ListNoticiasRequest) (ListNoticiasResponse, error) {
	doc, err := h.deps.News.ReadAll(ctx)
	if err != nil {
		return ListNoticiasResponse{}, err
	}
	return ListNoticiasResponse{
		Reply:         sitio.OK(""),
		Noticias:      doc.Noticias,
		Configuracion: doc.Configuracion,
	}, nil
}

type GetNoticiaRequest struct {
	ID string `schema:"id"`
}

type NoticiaResponse struct {
	sitio.Reply
	Noticia *news.Record `json:"noticia"`
}

func (h *handlers) getNoticia(ctx context.Context, req GetNoticiaRequest) (NoticiaResponse, error) {
	r, err := h.deps.News.Get(ctx, parseID(req.ID))
	if err != nil {
		return NoticiaResponse{}, err
	}
	return NoticiaResponse{Reply: sitio.OK(""), Noticia: r}, nil
}

// UpdateNoticiaRequest is the editor form. The optional image travels as the
// multipart file "imagen".
type UpdateNoticiaRequest struct {
	Action    string `schema:"action"`
	ID        string `schema:"id"`
	Titulo    string `schema:"titulo"`
	Resumen   string `schema:"resumen"`
	Contenido string `schema:"contenido"`
	Categoria string `schema:"categoria"`
	Fecha     string `schema:"fecha"`
	Destacada string `schema:"destacada" validate:"omitempty,oneof=0 1 true false on"`
}

const updatedMessage = "Noticia actualizada correctamente"

func (h *handlers) updateNoticia(ctx context.Context, req UpdateNoticiaRequest) (NoticiaResponse, error) {
	var img *news.Image
	file, hdr, err := sitio.FormFile(ctx, "imagen")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return NoticiaResponse{}, sitio.Errorf(sitio.CodeInvalidArgument, "Imagen inválida: %v", err)
	default:
		defer file.Close()
		if hdr.Size > 0 {
			img = &news.Image{
				Reader:      file,
				ContentType: hdr.Header.Get("Content-Type"),
				Size:        hdr.Size,
			}
		}
	}

	r, err := h.deps.News.Update(ctx, parseID(req.ID), news.Fields{
		Titulo:    req.Titulo,
		Resumen:   req.Resumen,
		Contenido: req.Contenido,
		Categoria: req.Categoria,
		Fecha:     req.Fecha,
		Destacada: parseBool(req.Destacada),
	}, img)
	if err != nil {
		return NoticiaResponse{}, err
	}
	return NoticiaResponse{Reply: sitio.OK(updatedMessage), Noticia: r}, nil
}

type CuotaRequest struct {
	Monto float64 `schema:"monto" validate:"gt=0"`
	Meses int     `schema:"meses" validate:"gt=0"`
	Tasa  float64 `schema:"tasa" validate:"gte=0"`
}

type CuotaResponse struct {
	sitio.Reply
	loans.Quote
	Texto string `json:"texto"`
}

func (h *handlers) cuota(_ context.Context, req CuotaRequest) (CuotaResponse, error) {
	q, err := loans.Compute(req.Monto, req.Meses, req.Tasa)
	if err != nil {
		return CuotaResponse{}, err
	}
	return CuotaResponse{Reply: sitio.OK(""), Quote: q, Texto: q.Display()}, nil
}

type RequisitosRequest struct {
	Servicio string `schema:"servicio" validate:"required"`
}

type RequisitosResponse struct {
	sitio.Reply
	Servicio   string   `json:"servicio"`
	Documentos []string `json:"documentos"`
}

func (h *handlers) requisitos(_ context.Context, req RequisitosRequest) (RequisitosResponse, error) {
	return RequisitosResponse{
		Reply:      sitio.OK(""),
		Servicio:   req.Servicio,
		Documentos: loans.Requirements(req.Servicio),
	}, nil
}

// parseID maps anything that is not a number to 0, which the store rejects
// as an invalid id.
func parseID(s string) int {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return id
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on":
		return true
	}
	return false
}
