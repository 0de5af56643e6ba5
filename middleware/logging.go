package middleware

import (
	"time"

	"github.com/mutualangaco/sitio"
	"github.com/sirupsen/logrus"
)

// LoggingInterceptor creates an interceptor that logs endpoint calls.
// It logs the start and end of each call, including duration and error status.
func LoggingInterceptor(logger logrus.FieldLogger) sitio.UnaryInterceptor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(ctx *sitio.Context, req any, handler sitio.HandlerFunc) (any, error) {
		start := time.Now()

		entry := logger.WithField("endpoint", ctx.EndpointID())
		if id := RequestID(ctx); id != "" {
			entry = entry.WithField("request_id", id)
		}
		entry.Info("request started")

		res, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			entry.WithField("duration", duration.String()).WithError(err).Error("request failed")
		} else {
			entry.WithField("duration", duration.String()).Info("request completed")
		}

		return res, err
	}
}
