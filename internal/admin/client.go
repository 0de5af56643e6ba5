// Package admin is the news editor's side of the news endpoint: a client for
// it, a terminal rendering of the records and the controller that ties both
// together for the command line.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mutualangaco/sitio/internal/news"
)

// APIError is a failure reported by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Campos  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error del servidor (%d)", e.Status)
	}
	return e.Message
}

// envelope covers every response of the news endpoint.
type envelope struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message"`
	Code          string             `json:"code"`
	Campos        map[string]string  `json:"campos"`
	Noticias      []news.Record      `json:"noticias"`
	Configuracion news.Configuracion `json:"configuracion"`
	Noticia       *news.Record       `json:"noticia"`
}

// Client talks to /api/noticias.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the site at baseURL, e.g.
// "http://localhost:8080". hc may be nil.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/noticias",
		http:     hc,
	}
}

// List fetches the whole document.
func (c *Client) List(ctx context.Context) (*news.Document, error) {
	env, err := c.get(ctx, url.Values{"action": {"get"}})
	if err != nil {
		return nil, err
	}
	return &news.Document{Noticias: env.Noticias, Configuracion: env.Configuracion}, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, id int) (*news.Record, error) {
	env, err := c.get(ctx, url.Values{"action": {"get_one"}, "id": {strconv.Itoa(id)}})
	if err != nil {
		return nil, err
	}
	if env.Noticia == nil {
		return nil, fmt.Errorf("respuesta sin noticia para el id %d", id)
	}
	return env.Noticia, nil
}

// Edit is one submission of the edit form.
type Edit struct {
	ID     int
	Fields news.Fields
	// ImagePath is a local file to upload as the new image, or empty.
	ImagePath string
}

// Update submits e and returns the record as stored by the server.
func (c *Client) Update(ctx context.Context, e Edit) (*news.Record, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	destacada := "0"
	if e.Fields.Destacada {
		destacada = "1"
	}
	for _, kv := range [][2]string{
		{"action", "update"},
		{"id", strconv.Itoa(e.ID)},
		{"titulo", e.Fields.Titulo},
		{"resumen", e.Fields.Resumen},
		{"contenido", e.Fields.Contenido},
		{"categoria", e.Fields.Categoria},
		{"fecha", e.Fields.Fecha},
		{"destacada", destacada},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	if e.ImagePath != "" {
		if err := attach(mw, e.ImagePath); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if env.Noticia == nil {
		return nil, fmt.Errorf("respuesta sin noticia para el id %d", e.ID)
	}
	return env.Noticia, nil
}

func attach(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile("imagen", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func (c *Client) get(ctx context.Context, q url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error de conexión: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("respuesta inválida del servidor: %v", err)}
	}
	if !env.Success {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Code:    env.Code,
			Message: env.Message,
			Campos:  env.Campos,
		}
	}
	return &env, nil
}
