// Package media stores the images attached to news records.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 2 << 20

// DefaultDir is where news images live, relative to the site root.
const DefaultDir = "assets/imagenes/noticias"

var (
	ErrPayloadTooLarge  = errors.New("image exceeds 2 MiB")
	ErrUnsupportedType  = errors.New("image type not allowed")
	ErrOutsideAssetDir  = errors.New("path outside the image directory")
	allowedContentTypes = []string{"image/jpeg", "image/png", "image/webp"}
)

// Store writes images under root/dir and hands back site-relative paths.
type Store struct {
	root   string
	dir    string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewStore returns a Store for images under root/dir. dir uses forward slashes
// because it is also the URL path the site serves the images from.
func NewStore(root, dir string, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{
		root:   root,
		dir:    strings.Trim(path.Clean(filepath.ToSlash(dir)), "/"),
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for file names.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir returns the absolute directory images are written to.
func (s *Store) Dir() string {
	return filepath.Join(s.root, filepath.FromSlash(s.dir))
}

// Store validates and persists an uploaded image for record id.
// size is what the client declared; the content is re-checked while reading.
// The type is sniffed from the bytes, declaredType is only logged.
func (s *Store) Store(ctx context.Context, r io.Reader, declaredType string, size int64, id int) (string, error) {
	if size > MaxImageSize {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, MaxImageSize)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedContentTypes...) {
		s.logger.WithFields(logrus.Fields{
			"declared": declaredType,
			"detected": mt.String(),
			"id":       id,
		}).Warn("rejected image upload")
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	name := fmt.Sprintf("noticia-%d-%d-%s%s", id, s.now().Unix(), uuid.NewString()[:8], mt.Extension())
	if err := renameio.WriteFile(filepath.Join(s.Dir(), name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	rel := path.Join(s.dir, name)
	s.logger.WithFields(logrus.Fields{
		"id":   id,
		"path": rel,
		"type": mt.String(),
		"size": len(data),
	}).Info("image stored")
	return rel, nil
}

// Remove deletes an image previously returned by Store. Empty paths and
// files that are already gone are not errors.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	clean := path.Clean(filepath.ToSlash(rel))
	if path.Dir(clean) != s.dir {
		return fmt.Errorf("%w: %s", ErrOutsideAssetDir, rel)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// Sniff reports the detected content type of data and whether it is an
// accepted image type.
func Sniff(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	return mt.String(), mimetype.EqualsAny(mt.String(), allowedContentTypes...)
}
