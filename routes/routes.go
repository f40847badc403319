package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ninehub/storefront/app"
	"github.com/ninehub/storefront/internal/observability"
	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}
	if cfg.Observability.MetricsEnabled {
		r.Use(observability.MetricsMiddleware)
	}

	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// Bearer authentication runs once per request, before any route
	r.Use(deps.AuthMiddleware.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)
	if cfg.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/user", func(r chi.Router) {
		r.With(deps.AuthMiddleware.RequireAuthority(models.AuthorityAdminRead)).
			Get("/all", deps.UserHandler.HandleListUsers)
		r.With(deps.AuthMiddleware.RequireAuthenticated).
			Get("/me", deps.UserHandler.HandleCurrentUser)
	})
	r.With(deps.AuthMiddleware.RequireAuthenticated).
		Post("/logout", deps.UserHandler.HandleLogout)

	// Public
	r.Post("/api/email/send-order-email", deps.EmailHandler.HandleSendOrderEmail)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "endpoint not found"})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
