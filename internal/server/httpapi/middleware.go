package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/netx"
	"github.com/dmitrijs2005/manokeeper/internal/server/auth"
	"github.com/google/uuid"
)

type ctxKey string

const identityKey ctxKey = "identity"

func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(h, common.BearerPrefix)
		if !ok || token == "" {
			netx.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}

		id, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, *id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog logs each request once it completes and turns a handler
// panic into a 500.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		log := s.logger.With("request_id", uuid.NewString(), "method", r.Method, "path", r.URL.Path)

		defer func() {
			if p := recover(); p != nil {
				log.Error(r.Context(), "handler panic", "panic", p)
				netx.WriteError(rec, http.StatusInternalServerError, common.ErrorInternal.Error())
			}
			log.Info(r.Context(), "request", "status", rec.status, "duration", time.Since(start))
		}()

		next.ServeHTTP(rec, r)
	})
}
