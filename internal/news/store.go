// Package news keeps the site's four news records in a single JSON file.
//
// The server process is the only writer. Every update rewrites the whole
// document through a temporary file and a rename, under a process-wide lock,
// so readers never see a truncated file and concurrent edits cannot
// interleave their read-modify-write.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/mutualangaco/sitio/internal/validation"
	"github.com/sirupsen/logrus"
)

// DefaultAuthor signs records that carry no author.
const DefaultAuthor = "Mutual Angaco"

// Images stores and deletes the files attached to records.
type Images interface {
	Store(ctx context.Context, r io.Reader, declaredType string, size int64, id int) (string, error)
	Remove(rel string) error
}

// Image is an uploaded replacement image.
type Image struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

// Store is the news document on disk.
type Store struct {
	mu     sync.Mutex
	path   string
	images Images
	author string
	logger logrus.FieldLogger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source for ultima_actualizacion.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultAuthor sets the author given to records that have none.
func WithDefaultAuthor(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.author = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore returns a Store for the JSON file at path. images may be nil if
// updates never carry an image.
func NewStore(path string, images Images, opts ...Option) *Store {
	s := &Store{
		path:   path,
		images: images,
		author: DefaultAuthor,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// ReadAll returns the whole document.
func (s *Store) ReadAll(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, id int) (*Record, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	doc, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	i := doc.Find(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	r := doc.Noticias[i]
	return &r, nil
}

// Update replaces the editable fields of record id and, when img is not nil,
// its image. Setting Destacada clears the flag on every other record in the
// same write. Otherwise at most one other record stays featured, the first in
// the document. The slug is always recomputed from the new title.
//
// Invalid input is rejected before anything touches the disk. The previous
// image is deleted only after the document has been written.
func (s *Store) Update(ctx context.Context, id int, f Fields, img *Image) (*Record, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	idx := doc.Find(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d not in document", ErrInvalidID, id)
	}

	clean := Fields{
		Titulo:    validation.Escape(f.Titulo),
		Resumen:   validation.Escape(f.Resumen),
		Contenido: validation.Escape(f.Contenido),
		Categoria: validation.Escape(f.Categoria),
		Fecha:     validation.Escape(f.Fecha),
		Destacada: f.Destacada,
	}
	if missing := clean.missing(); len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	prev := doc.Noticias[idx]
	imagen := prev.Imagen
	if img != nil {
		if s.images == nil {
			return nil, errors.New("news: store has no image handler")
		}
		imagen, err = s.images.Store(ctx, img.Reader, img.ContentType, img.Size, id)
		if err != nil {
			return nil, err
		}
	}

	keep := -1
	if clean.Destacada {
		keep = idx
	}
	for i := range doc.Noticias {
		if i == idx || !doc.Noticias[i].Destacada {
			continue
		}
		if keep == -1 {
			keep = i
			continue
		}
		doc.Noticias[i].Destacada = false
	}

	autor := prev.Autor
	if autor == "" {
		autor = s.author
	}
	doc.Noticias[idx] = Record{
		ID:        id,
		Titulo:    clean.Titulo,
		Slug:      Slug(clean.Titulo),
		Resumen:   clean.Resumen,
		Contenido: clean.Contenido,
		Imagen:    imagen,
		Categoria: clean.Categoria,
		Destacada: clean.Destacada,
		Fecha:     clean.Fecha,
		Autor:     autor,
	}

	if err := s.write(doc); err != nil {
		if imagen != prev.Imagen {
			if rmErr := s.images.Remove(imagen); rmErr != nil {
				s.logger.WithError(rmErr).WithField("path", imagen).Warn("could not remove orphaned image")
			}
		}
		return nil, err
	}

	if imagen != prev.Imagen && prev.Imagen != "" {
		if err := s.images.Remove(prev.Imagen); err != nil {
			s.logger.WithError(err).WithField("path", prev.Imagen).Warn("could not remove replaced image")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"id":        id,
		"slug":      doc.Noticias[idx].Slug,
		"destacada": clean.Destacada,
		"imagen":    imagen,
	}).Info("news record updated")

	r := doc.Noticias[idx]
	return &r, nil
}

// Seed writes the initial document. It refuses to overwrite an existing file.
func (s *Store) Seed(ctx context.Context, records []Record) error {
	if len(records) != RecordCount {
		return fmt.Errorf("seed needs %d records, got %d", RecordCount, len(records))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadySeeded, s.path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	doc := &Document{Noticias: append([]Record(nil), records...)}
	if err := doc.check(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	featured := false
	for i := range doc.Noticias {
		doc.Noticias[i].Slug = Slug(doc.Noticias[i].Titulo)
		if doc.Noticias[i].Autor == "" {
			doc.Noticias[i].Autor = s.author
		}
		if doc.Noticias[i].Destacada {
			if featured {
				doc.Noticias[i].Destacada = false
			}
			featured = true
		}
	}
	return s.write(doc)
}

func (s *Store) read(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	if err := doc.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return &doc, nil
}

func (s *Store) write(doc *Document) error {
	doc.Configuracion = Configuracion{
		UltimaActualizacion: s.now().Format(TimestampLayout),
		Version:             DocumentVersion,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode news document: %w", err)
	}

	if err := renameio.WriteFile(s.path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return fmt.Errorf("%w: write: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (f Fields) missing() []string {
	var out []string
	for _, c := range []struct{ name, value string }{
		{"titulo", f.Titulo},
		{"resumen", f.Resumen},
		{"contenido", f.Contenido},
		{"categoria", f.Categoria},
		{"fecha", f.Fecha},
	} {
		if c.value == "" {
			out = append(out, c.name)
		}
	}
	return out
}
