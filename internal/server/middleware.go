package server

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/railzwaylabs/caremarket/internal/redis"
	"github.com/railzwaylabs/caremarket/internal/requestctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(requestctx.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) tracing() gin.HandlerFunc {
	if s.tracer == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := s.tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := requestctx.RequestIDFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			s.log.Error("request", fields...)
		case status >= 400:
			s.log.Warn("request", fields...)
		default:
			s.log.Info("request", fields...)
		}
	}
}

func (s *Server) httpMetrics() gin.HandlerFunc {
	if s.metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// captureWriter keeps a copy of the body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(v string) (int, error) {
	w.body.WriteString(v)
	return w.ResponseWriter.WriteString(v)
}

func idempotencyKeyFromHeader(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}

// idempotent replays the stored response when an Idempotency-Key repeats.
// Redis failures do not block the request.
func (s *Server) idempotent(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := idempotencyKeyFromHeader(c)
		if key == "" || !s.idem.Enabled() {
			c.Next()
			return
		}
		if len(key) > 128 {
			AbortWithError(c, newValidationError("Idempotency-Key", "invalid_idempotency_key", "Idempotency-Key must be at most 128 characters."))
			return
		}

		ctx := c.Request.Context()
		record, err := s.idem.Lookup(ctx, scope, key)
		if errors.Is(err, redis.ErrRequestInProgress) {
			AbortWithError(c, err)
			return
		}
		if err != nil {
			s.log.Warn("idempotency lookup failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if record != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(record.Status, record.ContentType, record.Body)
			c.Abort()
			return
		}

		reserved, err := s.idem.Reserve(ctx, scope, key)
		if err != nil {
			s.log.Warn("idempotency reserve failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			AbortWithError(c, redis.ErrRequestInProgress)
			return
		}

		// The reservation is dropped unless a response was saved, including
		// when the handler panics.
		saved := false
		defer func() {
			if saved {
				return
			}
			if err := s.idem.Release(context.WithoutCancel(ctx), scope, key); err != nil {
				s.log.Warn("idempotency release failed", zap.String("scope", scope), zap.Error(err))
			}
		}()

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < 200 || status >= 300 {
			return
		}
		err = s.idem.Save(ctx, scope, key, redis.Record{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			s.log.Warn("idempotency save failed", zap.String("scope", scope), zap.Error(err))
			return
		}
		saved = true
	}
}
