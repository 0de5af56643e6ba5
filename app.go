package sitio

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// defaultMaxRequestBodySize leaves room for a 2 MiB image plus the text
	// fields, so oversize images are rejected by the image handler with its
	// own message rather than by the body limit.
	defaultMaxRequestBodySize = 8 << 20

	// defaultMaxMultipartMemory is kept in memory; larger parts spill to disk.
	defaultMaxMultipartMemory = 4 << 20
)

// App is the central router for the site's API endpoints.
// Services are mounted at {prefix}/{service} and dispatch on the "action"
// form/query parameter. Requests outside the prefix go to the fallback handler.
type App struct {
	mu                 sync.RWMutex
	prefix             string
	services           map[string]*Service
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	middlewares        []func(http.Handler) http.Handler
	logger             logrus.FieldLogger
	maxRequestBodySize int64
	maxMultipartMemory int64
	fallback           http.Handler
}

func NewApp() *App {
	return &App{
		prefix:             "/api",
		services:           make(map[string]*Service),
		maxRequestBodySize: defaultMaxRequestBodySize,
		maxMultipartMemory: defaultMaxMultipartMemory,
	}
}

// WithPrefix sets the path prefix services are mounted under. Default "/api".
func (a *App) WithPrefix(prefix string) *App {
	a.prefix = "/" + strings.Trim(prefix, "/")
	if a.prefix == "/" {
		a.prefix = ""
	}
	return a
}

// WithErrorTransformer adds a custom error transformer.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors replaces internal error messages with a generic one.
// The original error is still available to interceptors and logging.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithUnaryInterceptor adds a global interceptor.
//
// Interceptor execution order:
//  1. Global interceptors (added via App.WithUnaryInterceptor)
//  2. Service interceptors (added via Service.WithUnaryInterceptor)
//  3. Handler interceptors (added via Handler.WithUnaryInterceptor)
//  4. Handler function
func (a *App) WithUnaryInterceptor(i UnaryInterceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets the logger. If not set, the logrus standard logger is used.
func (a *App) WithLogger(logger logrus.FieldLogger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize limits request bodies. A value of 0 means no limit.
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.maxRequestBodySize = size
	return a
}

// WithFallback sets the handler for paths outside the API prefix,
// typically a file server for the static site.
func (a *App) WithFallback(h http.Handler) *App {
	a.fallback = h
	return a
}

func (a *App) log() logrus.FieldLogger {
	if a.logger == nil {
		return logrus.StandardLogger()
	}
	return a.logger
}

// Handler returns an http.Handler including all configured middleware.
//
//	app := sitio.NewApp().WithMiddleware(cors)
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// Service returns the named service, creating it on first use.
func (a *App) Service(name string) *Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.services[name]; ok {
		return s
	}
	s := &Service{
		app:    a,
		name:   name,
		routes: make(map[string]endpointHandler),
	}
	a.services[name] = s
	return s
}

func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log().WithFields(logrus.Fields{
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error("PANIC recovered")
			writeError(w, NewError(CodeInternal, "Error interno del servidor"), a.logger)
		}
	}()

	name, ok := a.serviceName(req.URL.Path)
	if !ok {
		if a.fallback != nil {
			a.fallback.ServeHTTP(w, req)
			return
		}
		writeError(w, NewError(CodeNotFound, "Ruta no encontrada"), a.logger)
		return
	}

	a.mu.RLock()
	svc, ok := a.services[name]
	a.mu.RUnlock()
	if !ok {
		writeError(w, NewError(CodeNotFound, "Ruta no encontrada"), a.logger)
		return
	}

	if a.maxRequestBodySize > 0 && req.Body != nil {
		req.Body = http.MaxBytesReader(w, req.Body, a.maxRequestBodySize)
	}
	if err := a.parseForm(req); err != nil {
		writeError(w, err, a.logger)
		return
	}
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}

	action := req.Form.Get("action")
	h, ok := svc.route(action)
	if !ok {
		writeError(w, NewError(CodeInvalidArgument, "Acción no válida"), a.logger)
		return
	}

	if req.Method != h.Metadata().Method {
		writeError(w, NewError(CodeMethodNotAllowed, "Método no permitido"), a.logger)
		return
	}

	ctx := newContext(req.Context(), w, req, svc.name, action)
	h.serve(ctx, handlerConfig{
		errorTransformer:   a.errorTransformer,
		maskInternalErrors: a.maskInternalErrors,
		interceptors:       append(append([]UnaryInterceptor(nil), a.interceptors...), svc.interceptors...),
		logger:             a.logger,
	})
}

// serviceName extracts the service from {prefix}/{service}[/].
func (a *App) serviceName(path string) (string, bool) {
	if !strings.HasPrefix(path, a.prefix+"/") {
		return "", false
	}
	name := strings.Trim(strings.TrimPrefix(path, a.prefix+"/"), "/")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func (a *App) parseForm(req *http.Request) *Error {
	var err error
	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		err = req.ParseMultipartForm(a.maxMultipartMemory)
	} else {
		err = req.ParseForm()
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return Errorf(CodeResourceExhausted, "La solicitud supera el máximo de %d bytes", tooLarge.Limit)
	}
	return NewError(CodeInvalidArgument, fmt.Sprintf("Formulario inválido: %v", err))
}

// Service groups the actions served under one path.
type Service struct {
	app          *App
	name         string
	interceptors []UnaryInterceptor
	routes       map[string]endpointHandler
}

// WithUnaryInterceptor adds an interceptor to this service.
// Service interceptors execute after global interceptors but before handler interceptors.
func (s *Service) WithUnaryInterceptor(i UnaryInterceptor) *Service {
	s.interceptors = append(s.interceptors, i)
	return s
}

// Register registers a handler for an action. The empty action is used when
// the request carries no "action" parameter. Registering an action twice
// replaces the handler and logs a warning.
func (s *Service) Register(action string, handler Endpoint) {
	h, ok := handler.(endpointHandler)
	if !ok {
		panic("sitio: handler must be created with Query() or Exec()")
	}

	s.app.mu.Lock()
	defer s.app.mu.Unlock()

	if _, exists := s.routes[action]; exists {
		s.app.log().WithFields(logrus.Fields{
			"service": s.name,
			"action":  action,
		}).Warn("duplicate route registration")
	}
	s.routes[action] = h
}

func (s *Service) route(action string) (endpointHandler, bool) {
	s.app.mu.RLock()
	defer s.app.mu.RUnlock()
	h, ok := s.routes[action]
	return h, ok
}
