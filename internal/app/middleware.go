package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prodige/prodige/internal/config"
	"github.com/prodige/prodige/internal/metrics"
	"github.com/prodige/prodige/internal/rest"
	"github.com/prodige/prodige/pkg/user"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires the global HTTP middlewares: request logging with
// metrics, then CORS.
func SetupMiddleware(r *mux.Router, cfg config.Application) {
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(cfg.Cors.Origin))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.Observe(float64(elapsed.Milliseconds()))
		log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, Accept"
)

// corsMiddleware allows the configured origins (comma-separated, or "*" for
// any) and answers preflight requests directly.
func corsMiddleware(origin string) mux.MiddlewareFunc {
	wildcard := origin == "*" || origin == ""
	allowed := make(map[string]struct{})
	for _, o := range strings.Split(origin, ",") {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			ok := wildcard
			if !ok {
				_, ok = allowed[reqOrigin]
			}
			if ok && reqOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", reqOrigin)
			} else if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth verifies the Bearer token, loads the account and attaches it
// to the request context. 401 when the token is missing or invalid.
func (d *Dependencies) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			rest.WriteError(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}
		token := strings.TrimSpace(header[len(prefix):])

		claims, err := d.Tokens.Verify(token)
		if err != nil {
			rest.WriteError(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}

		u, err := d.UserService.GetByID(r.Context(), claims.Subject)
		if err != nil {
			log.Debugf("token subject %s not found: %v", claims.Subject, err)
			rest.WriteError(w, http.StatusUnauthorized, "not authorized to access this route")
			return
		}

		next(w, r.WithContext(user.WithUser(r.Context(), u)))
	}
}
