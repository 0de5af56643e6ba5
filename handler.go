package sitio

import (
	"context"
	"net/http"
	"net/url"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"
)

var (
	validate      = newValidator()
	schemaDecoder = schema.NewDecoder()
	strictDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
	strictDecoder.IgnoreUnknownKeys(false)
}

// newValidator reports fields by their form name so error details match
// what the browser sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := formName(f); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func formName(f reflect.StructField) string {
	tag := f.Tag.Get("schema")
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "-" {
		return ""
	}
	return tag
}

// handlerConfig is assembled by the App for every call.
type handlerConfig struct {
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	logger             logrus.FieldLogger
}

// EndpointMetadata describes a registered handler.
type EndpointMetadata struct {
	Method   string
	Strict   bool
	Request  reflect.Type
	Response reflect.Type
}

// Endpoint is the interface for registered handlers.
// It is exported so callers can pass handlers to Register, but sealed so they
// cannot implement it.
type Endpoint interface {
	Metadata() *EndpointMetadata
}

type endpointHandler interface {
	Endpoint
	serve(ctx *Context, config handlerConfig)
}

// Handler adapts a typed function to an HTTP endpoint. The request struct is
// decoded from the query string (GET) or the form body (POST) with gorilla/schema
// and checked with its `validate` tags before fn runs.
type Handler[Req any, Res any] struct {
	fn           func(context.Context, Req) (Res, error)
	method       string
	strict       bool
	interceptors []UnaryInterceptor
}

// Query creates a GET handler.
func Query[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Handler[Req, Res] {
	return &Handler[Req, Res]{fn: fn, method: http.MethodGet}
}

// Exec creates a POST handler.
func Exec[Req any, Res any](fn func(context.Context, Req) (Res, error)) *Handler[Req, Res] {
	return &Handler[Req, Res]{fn: fn, method: http.MethodPost}
}

// Strict makes decoding reject form keys that the request struct does not declare.
func (h *Handler[Req, Res]) Strict() *Handler[Req, Res] {
	h.strict = true
	return h
}

// WithUnaryInterceptor adds an interceptor to this handler.
func (h *Handler[Req, Res]) WithUnaryInterceptor(i UnaryInterceptor) *Handler[Req, Res] {
	h.interceptors = append(h.interceptors, i)
	return h
}

// Metadata returns the runtime metadata for the handler.
func (h *Handler[Req, Res]) Metadata() *EndpointMetadata {
	var req Req
	var res Res
	return &EndpointMetadata{
		Method:   h.method,
		Strict:   h.strict,
		Request:  reflect.TypeOf(req),
		Response: reflect.TypeOf(res),
	}
}

func (h *Handler[Req, Res]) decode(r *http.Request) (Req, error) {
	var req Req

	var values url.Values
	if h.method == http.MethodGet {
		values = r.URL.Query()
	} else {
		values = r.PostForm
	}

	dec := schemaDecoder
	if h.strict {
		dec = strictDecoder
	}

	reqType := reflect.TypeOf(req)
	if reqType.Kind() == reflect.Ptr {
		val := reflect.New(reqType.Elem())
		if err := dec.Decode(val.Interface(), values); err != nil {
			return req, Errorf(CodeInvalidArgument, "Formulario inválido: %v", err)
		}
		req = val.Interface().(Req)
	} else {
		if err := dec.Decode(&req, values); err != nil {
			return req, Errorf(CodeInvalidArgument, "Formulario inválido: %v", err)
		}
	}

	if err := validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

func (h *Handler[Req, Res]) serve(ctx *Context, config handlerConfig) {
	req, err := h.decode(ctx.r)
	if err != nil {
		handleError(ctx.w, err, config)
		return
	}

	all := make([]UnaryInterceptor, 0, len(config.interceptors)+len(h.interceptors))
	all = append(all, config.interceptors...)
	all = append(all, h.interceptors...)

	final := func(c context.Context, reqAny any) (any, error) {
		typed, ok := reqAny.(Req)
		if !ok {
			return nil, NewError(CodeInternal, "interceptor modified request type incorrectly")
		}
		return h.fn(c, typed)
	}

	var res any
	if chain := chainInterceptors(all); chain != nil {
		res, err = chain(ctx, req, final)
	} else {
		res, err = final(ctx, req)
	}
	if err != nil {
		handleError(ctx.w, err, config)
		return
	}

	ctx.w.Header().Set("Content-Type", contentTypeJSON)
	if err := encodeResponse(ctx.w, res); err != nil {
		// Response may be partially written, nothing we can do.
		logger := config.logger
		if logger == nil {
			logger = logrus.StandardLogger()
		}
		logger.WithError(err).WithField("endpoint", ctx.EndpointID()).Error("failed to encode response")
	}
}

func handleError(w http.ResponseWriter, err error, config handlerConfig) {
	var svcErr *Error
	if config.errorTransformer != nil {
		svcErr = config.errorTransformer(err)
	}
	if svcErr == nil {
		svcErr = DefaultErrorTransformer(err)
		// Only errors nobody classified are masked.
		if config.maskInternalErrors && svcErr.Code == CodeInternal {
			logger := config.logger
			if logger == nil {
				logger = logrus.StandardLogger()
			}
			logger.WithError(err).Error("unclassified error")
			svcErr = NewError(CodeInternal, "Error interno del servidor")
		}
	}
	writeError(w, svcErr, config.logger)
}
