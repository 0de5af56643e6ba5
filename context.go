package sitio

import (
	"context"
	"mime/multipart"
	"net"
	"net/http"
)

type contextKey struct {
	name string
}

var endpointKey = &contextKey{"endpoint"}

// Context carries the request metadata of one endpoint call.
// Handlers receive it as a plain context.Context; interceptors get it typed.
type Context struct {
	context.Context
	w       http.ResponseWriter
	r       *http.Request
	service string
	action  string
}

// NewContext creates a Context without an HTTP request attached.
// It is meant for exercising interceptors in tests.
func NewContext(parent context.Context, service, action string) *Context {
	return &Context{Context: parent, service: service, action: action}
}

func newContext(parent context.Context, w http.ResponseWriter, r *http.Request, service, action string) *Context {
	return &Context{Context: parent, w: w, r: r, service: service, action: action}
}

// Value makes the Context discoverable through wrapped contexts.
func (c *Context) Value(key any) any {
	if key == endpointKey {
		return c
	}
	return c.Context.Value(key)
}

// Service returns the service name, e.g. "noticias".
func (c *Context) Service() string { return c.service }

// Action returns the dispatched action, e.g. "update". Empty for default actions.
func (c *Context) Action() string { return c.action }

// EndpointID returns "service.action" (or just the service for the default action).
func (c *Context) EndpointID() string {
	if c.action == "" {
		return c.service
	}
	return c.service + "." + c.action
}

// Request returns the HTTP request, or nil when built with NewContext.
func (c *Context) Request() *http.Request { return c.r }

// SetHeader sets an HTTP response header.
func (c *Context) SetHeader(key, value string) {
	if c.w != nil {
		c.w.Header().Set(key, value)
	}
}

// FromContext returns the endpoint Context stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(endpointKey).(*Context)
	return c, ok
}

// RequestFromContext returns the HTTP request from the context.
func RequestFromContext(ctx context.Context) *http.Request {
	if c, ok := FromContext(ctx); ok {
		return c.r
	}
	return nil
}

// RemoteAddr returns the caller's network address without the port.
func RemoteAddr(ctx context.Context) string {
	r := RequestFromContext(ctx)
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormFile returns the uploaded file for field. It returns http.ErrMissingFile
// when the request carries no such file.
func FormFile(ctx context.Context, field string) (multipart.File, *multipart.FileHeader, error) {
	r := RequestFromContext(ctx)
	if r == nil || r.MultipartForm == nil {
		return nil, nil, http.ErrMissingFile
	}
	return r.FormFile(field)
}
