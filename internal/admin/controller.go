package admin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/mutualangaco/sitio/internal/news"
)

// API is the subset of Client the controller needs.
type API interface {
	List(ctx context.Context) (*news.Document, error)
	Update(ctx context.Context, e Edit) (*news.Record, error)
}

// Controller drives one editing session. The records it holds are a copy of
// the last fetch and live only as long as the controller.
type Controller struct {
	api     API
	out     io.Writer
	records []news.Record
}

func NewController(api API, out io.Writer) *Controller {
	return &Controller{api: api, out: out}
}

// Load fetches the records and renders the grid.
func (c *Controller) Load(ctx context.Context) error {
	doc, err := c.api.List(ctx)
	if err != nil {
		c.banner(err)
		return err
	}
	c.records = doc.Noticias
	return RenderGrid(c.out, c.records)
}

// Records returns the records of the last Load.
func (c *Controller) Records() []news.Record {
	return c.records
}

// Prefill returns the editable fields of record id as the editor should
// show them, with the stored HTML escapes undone so a save round-trips.
func (c *Controller) Prefill(id int) (news.Fields, error) {
	for _, r := range c.records {
		if r.ID == id {
			return news.Fields{
				Titulo:    html.UnescapeString(r.Titulo),
				Resumen:   html.UnescapeString(r.Resumen),
				Contenido: html.UnescapeString(r.Contenido),
				Categoria: html.UnescapeString(r.Categoria),
				Fecha:     html.UnescapeString(r.Fecha),
				Destacada: r.Destacada,
			}, nil
		}
	}
	return news.Fields{}, fmt.Errorf("la noticia %d no está cargada", id)
}

// Edit checks the replacement image, submits e and, on success, reloads
// and re-renders the grid.
func (c *Controller) Edit(ctx context.Context, e Edit) (*news.Record, error) {
	if e.ImagePath != "" {
		if _, err := CheckImage(e.ImagePath); err != nil {
			c.banner(err)
			return nil, err
		}
	}

	r, err := c.api.Update(ctx, e)
	if err != nil {
		c.banner(err)
		return nil, err
	}
	fmt.Fprintln(c.out, successBanner("Noticia actualizada correctamente"))

	if err := c.Load(ctx); err != nil {
		return r, err
	}
	return r, nil
}

func (c *Controller) banner(err error) {
	msg := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) && len(apiErr.Campos) > 0 {
		fields := make([]string, 0, len(apiErr.Campos))
		for f := range apiErr.Campos {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		msg += " (" + strings.Join(fields, ", ") + ")"
	}
	fmt.Fprintln(c.out, errorBanner(msg))
}
