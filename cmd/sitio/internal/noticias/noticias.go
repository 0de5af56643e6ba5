// Package noticias holds the news editing commands. They talk to a running
// server through its public endpoints.
package noticias

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mutualangaco/sitio/internal/admin"
)

type Cmd struct {
	List ListCmd `cmd:"" default:"1" help:"Show every news record as a grid."`
	Show ShowCmd `cmd:"" help:"Show one news record in full."`
	Edit EditCmd `cmd:"" help:"Edit one news record."`
}

// Remote selects the server the commands talk to.
type Remote struct {
	URL     string        `help:"Base URL of the site." default:"http://localhost:8080" env:"SITIO_URL"`
	Timeout time.Duration `help:"Request timeout." default:"30s"`
}

func (r Remote) client() *admin.Client {
	return admin.NewClient(r.URL, &http.Client{Timeout: r.Timeout})
}

type ListCmd struct {
	Remote
}

func (c *ListCmd) Run() error {
	return admin.NewController(c.client(), os.Stdout).Load(context.Background())
}

type ShowCmd struct {
	Remote
	ID int `arg:"" help:"Record id (1-4)."`
}

func (c *ShowCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *ShowCmd) run(ctx context.Context, out io.Writer) error {
	r, err := c.client().Get(ctx, c.ID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, admin.Detail(*r))
	return err
}

// EditCmd starts from the stored values and replaces only the flags given.
type EditCmd struct {
	Remote
	ID        int    `arg:"" help:"Record id (1-4)."`
	Titulo    string `help:"New title."`
	Resumen   string `help:"New summary."`
	Contenido string `help:"New body."`
	Categoria string `help:"New category."`
	Fecha     string `help:"New date (YYYY-MM-DD)."`
	Destacar  bool   `help:"Make this the featured record." xor:"destacada"`
	Quitar    bool   `help:"Remove the featured mark." name:"no-destacar" xor:"destacada"`
	Imagen    string `help:"Replacement image (JPG, PNG or WebP, up to 2MB)." type:"existingfile"`
}

func (c *EditCmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *EditCmd) run(ctx context.Context, out io.Writer) error {
	ctrl := admin.NewController(c.client(), out)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	f, err := ctrl.Prefill(c.ID)
	if err != nil {
		return err
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&f.Titulo, c.Titulo)
	set(&f.Resumen, c.Resumen)
	set(&f.Contenido, c.Contenido)
	set(&f.Categoria, c.Categoria)
	set(&f.Fecha, c.Fecha)
	switch {
	case c.Destacar:
		f.Destacada = true
	case c.Quitar:
		f.Destacada = false
	}

	_, err = ctrl.Edit(ctx, admin.Edit{ID: c.ID, Fields: f, ImagePath: c.Imagen})
	return err
}
