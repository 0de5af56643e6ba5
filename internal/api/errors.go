package api

import (
	"errors"
	"strings"

	"github.com/mutualangaco/sitio"
	"github.com/mutualangaco/sitio/internal/contact"
	"github.com/mutualangaco/sitio/internal/loans"
	"github.com/mutualangaco/sitio/internal/media"
	"github.com/mutualangaco/sitio/internal/news"
	"github.com/mutualangaco/sitio/internal/validation"
	"github.com/sirupsen/logrus"
)

const storeFailureMessage = "No se pudieron leer las noticias"

// ErrorTransformer maps domain errors onto the messages the site shows.
// Storage faults are logged here since the visitor only sees a generic message.
func ErrorTransformer(logger logrus.FieldLogger) sitio.ErrorTransformer {
	return func(err error) *sitio.Error {
		var verr *validation.Error
		if errors.As(err, &verr) {
			out := sitio.NewError(sitio.CodeInvalidArgument, verr.Error())
			for _, f := range verr.Fields {
				out = out.WithDetail(f.Name, f.Message)
			}
			return out
		}

		switch {
		case errors.Is(err, news.ErrStoreUnavailable):
			logger.WithError(err).Error("news store unavailable")
			return sitio.NewError(sitio.CodeUnavailable, storeFailureMessage)
		case errors.Is(err, news.ErrStoreCorrupt):
			logger.WithError(err).Error("news store corrupt")
			return sitio.NewError(sitio.CodeInternal, storeFailureMessage)
		case errors.Is(err, news.ErrInvalidID):
			return sitio.NewError(sitio.CodeInvalidArgument, "ID de noticia inválido")
		case errors.Is(err, news.ErrNotFound):
			return sitio.NewError(sitio.CodeNotFound, "Noticia no encontrada")
		case errors.Is(err, news.ErrMissingField):
			out := sitio.NewError(sitio.CodeInvalidArgument, "Todos los campos son obligatorios")
			var mf *news.MissingFieldError
			if errors.As(err, &mf) {
				for _, f := range mf.Fields {
					out = out.WithDetail(f, "es obligatorio")
				}
			}
			return out
		case errors.Is(err, media.ErrPayloadTooLarge):
			return sitio.NewError(sitio.CodeResourceExhausted, "La imagen no puede pesar más de 2MB")
		case errors.Is(err, media.ErrUnsupportedType):
			return sitio.NewError(sitio.CodeInvalidArgument, "Solo se permiten imágenes JPG, PNG o WebP")
		case errors.Is(err, contact.ErrMailTransport):
			return sitio.NewError(sitio.CodeUnavailable, "Error al enviar el email. Por favor intentá nuevamente.")
		case errors.Is(err, loans.ErrInvalidAmount),
			errors.Is(err, loans.ErrInvalidTerm),
			errors.Is(err, loans.ErrInvalidRate):
			return sitio.NewError(sitio.CodeInvalidArgument, upperFirst(err.Error()))
		}
		return nil
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
