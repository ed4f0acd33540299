package middleware

import (
	"net/http"

	"gig-market/pkg/logging"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type LoggerContext struct {
	logger *logging.ZapLogger
}

func NewLoggerContext(logger *logging.ZapLogger) *LoggerContext {
	return &LoggerContext{
		logger: logger,
	}
}

// CreateHandler tags the request context with request fields and logs one
// line per finished request.
func (lc *LoggerContext) CreateHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(
			logging.WithContextFields(
				r.Context(),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.String("remote-addr", r.RemoteAddr),
				zap.String("request-id", middleware.GetReqID(r.Context())),
			),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		lc.logger.DebugCtx(r.Context(), "request handled", zap.Int("status", ww.Status()))
	})
}
