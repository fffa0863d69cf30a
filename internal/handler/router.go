package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookrec/internal/logging"
	"bookrec/internal/metrics"
)

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	CORSOrigins []string
	// RateLimit is the per-IP request budget per minute on /recommend routes.
	// Zero disables limiting.
	RateLimit int
}

// NewRouter wires every endpoint onto a chi router.
func NewRouter(h *RecommendHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/users", h.Users)
	r.Get("/items/search", h.SearchItems)
	r.Get("/stats", h.Stats)

	r.Route("/recommend", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}
		r.Get("/by-user", h.ByUser)
		r.Get("/by-item", h.ByItem)
		r.Get("/history", h.History)
	})

	return r
}

// requestLogger logs each request and records API metrics under the
// matched route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		elapsed := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, status, elapsed)

		logging.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}
