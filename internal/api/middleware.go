package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/EventDrop/internal/logging"
	"github.com/dharsanguruparan/EventDrop/internal/metrics"
	"github.com/dharsanguruparan/EventDrop/internal/model"
)

type ctxKey int

const eventKey ctxKey = iota

// requestLogger logs and measures every request. It runs deferred so aborted
// archive streams are still recorded.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqLog := s.log.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		r = r.WithContext(logging.WithContext(r.Context(), reqLog))

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			dur := time.Since(start)
			metrics.RecordHTTPRequest(r.Method, route, status, dur)
			reqLog.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", dur))
		}()
		next.ServeHTTP(ww, r)
	})
}

// requireAdmin loads the event named in the URL and rejects callers that are
// not its admin.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, err := s.store.FindEvent(r.Context(), chi.URLParam(r, "eventID"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := s.auth.Authorize(r, e); err != nil {
			logging.FromContext(r.Context(), s.log).Info("admin access denied", zap.String("event_id", e.ID), zap.Error(err))
			s.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), eventKey, e)))
	})
}

func eventFrom(ctx context.Context) *model.Event {
	e, _ := ctx.Value(eventKey).(*model.Event)
	return e
}
