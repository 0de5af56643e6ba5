package admin

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mutualangaco/sitio/internal/media"
)

var (
	ErrImageTooLarge = errors.New("la imagen no puede pesar más de 2MB")
	ErrImageType     = errors.New("solo se permiten imágenes JPG, PNG o WebP")
)

// CheckImage runs the server's size and type checks on a local file so a
// bad image fails before it is uploaded. It returns the detected type.
func CheckImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > media.MaxImageSize {
		return "", fmt.Errorf("%w: %s", ErrImageTooLarge, path)
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ct, ok := media.Sniff(head[:n])
	if !ok {
		return ct, fmt.Errorf("%w: %s es %s", ErrImageType, path, ct)
	}
	return ct, nil
}
