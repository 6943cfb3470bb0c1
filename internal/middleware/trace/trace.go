// Package trace stamps each request with an id and logs its start and end.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gigledger/internal/log"
)

type contextKey struct{}

// HeaderRequestID carries the id back to the client and in from a proxy.
const HeaderRequestID = "X-Request-ID"

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP, logger: logger.WithComponent(log.ComponentHTTP)}
}

// Middleware assigns the request id, then installs the request-scoped
// logger through log.Middleware so handlers reach it with log.FromContext.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	logged := log.Middleware(m.logger)(
		log.RequestIDMiddleware(func(r *http.Request) string { return RequestID(r.Context()) })(
			m.timed(next)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		logged.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, id)))
	})
}

func (m *Middleware) timed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		clientIP := r.RemoteAddr
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		reqLogger := log.FromContext(ctx)
		reqLogger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		rw := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rw, r)

		log.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, r, rw.Status, time.Since(start).Milliseconds(), clientIP)
	})
}

// StatusRecorder remembers the status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status      int
	wroteHeader bool
}

func (rw *StatusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.Status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *StatusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// RequestID returns the id stored by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
