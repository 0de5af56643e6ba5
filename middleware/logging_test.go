package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mutualangaco/sitio"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingInterceptor_Success(t *testing.T) {
	logger, hook := test.NewNullLogger()
	interceptor := LoggingInterceptor(logger)
	ctx := sitio.NewContext(context.Background(), "noticias", "get")

	res, err := interceptor(ctx, "request", func(ctx context.Context, req any) (any, error) {
		return "response", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "response", res)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "request started", entries[0].Message)
	assert.Equal(t, "noticias.get", entries[0].Data["endpoint"])
	assert.Equal(t, "request completed", entries[1].Message)
	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Contains(t, entries[1].Data, "duration")
	assert.NotContains(t, entries[1].Data, "request_id")
}

func TestLoggingInterceptor_Error(t *testing.T) {
	logger, hook := test.NewNullLogger()
	interceptor := LoggingInterceptor(logger)
	ctx := sitio.NewContext(context.Background(), "contacto", "")

	boom := errors.New("smtp down")
	res, err := interceptor(ctx, "request", func(ctx context.Context, req any) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	last := hook.LastEntry()
	assert.Equal(t, "request failed", last.Message)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "contacto", last.Data["endpoint"])
	assert.Equal(t, boom, last.Data[logrus.ErrorKey])
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()

	var parent context.Context
	h := RequestIDs(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent = r.Context()
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	ctx := sitio.NewContext(parent, "servicios", "cuota")
	_, err := LoggingInterceptor(logger)(ctx, nil, func(context.Context, any) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, "abc-123", hook.LastEntry().Data["request_id"])
}

func TestLoggingInterceptor_NilLogger(t *testing.T) {
	assert.NotNil(t, LoggingInterceptor(nil))
}
