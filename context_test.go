package sitio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext(context.Background(), "noticias", "get_one")
	if ctx.Service() != "noticias" {
		t.Errorf("expected service noticias, got %s", ctx.Service())
	}
	if ctx.Action() != "get_one" {
		t.Errorf("expected action get_one, got %s", ctx.Action())
	}
	if ctx.EndpointID() != "noticias.get_one" {
		t.Errorf("expected endpoint noticias.get_one, got %s", ctx.EndpointID())
	}
	if ctx.Request() != nil {
		t.Error("expected no request")
	}
	// No writer attached; must not panic.
	ctx.SetHeader("X-Test", "1")
}

func TestEndpointID_DefaultAction(t *testing.T) {
	ctx := NewContext(context.Background(), "contacto", "")
	if ctx.EndpointID() != "contacto" {
		t.Errorf("expected contacto, got %s", ctx.EndpointID())
	}
}

func TestRequestFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/noticias", nil)
	w := httptest.NewRecorder()
	ctx := newContext(context.Background(), w, req, "noticias", "get")

	if RequestFromContext(ctx) != req {
		t.Error("expected request from context")
	}
	wrapped := context.WithValue(ctx, ctxKey("other"), 1)
	if RequestFromContext(wrapped) != req {
		t.Error("expected request through a wrapped context")
	}
	if RequestFromContext(context.Background()) != nil {
		t.Error("expected nil request for a plain context")
	}
}

func TestSetHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	ctx := newContext(context.Background(), w, req, "s", "a")

	ctx.SetHeader("Cache-Control", "no-store")
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected no-store, got %q", got)
	}
}

func TestRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"203.0.113.7:51234", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"pipe", "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/contacto", nil)
		req.RemoteAddr = tt.addr
		ctx := newContext(context.Background(), httptest.NewRecorder(), req, "contacto", "")
		if got := RemoteAddr(ctx); got != tt.want {
			t.Errorf("RemoteAddr(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
	if RemoteAddr(context.Background()) != "" {
		t.Error("expected empty address without a request")
	}
}

func TestFormFile_NoMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/noticias", nil)
	ctx := newContext(context.Background(), httptest.NewRecorder(), req, "noticias", "update")
	if _, _, err := FormFile(ctx, "imagen"); err != http.ErrMissingFile {
		t.Errorf("expected ErrMissingFile, got %v", err)
	}
	if _, _, err := FormFile(context.Background(), "imagen"); err != http.ErrMissingFile {
		t.Errorf("expected ErrMissingFile without a request, got %v", err)
	}
}
