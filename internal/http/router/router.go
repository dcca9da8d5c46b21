package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/site-analyzer/portal/internal/domain"
	"github.com/site-analyzer/portal/internal/http/handler"
	"github.com/site-analyzer/portal/internal/http/middleware"
	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/realtime"
	"github.com/site-analyzer/portal/internal/repository"
)

type Dependencies struct {
	Logger *slog.Logger

	AuthHandler      *handler.AuthHandler
	DashboardHandler *handler.DashboardHandler
	DownloadHandler  *handler.DownloadHandler
	VersionHandler   *handler.VersionHandler
	WSHandler        *realtime.WSHandler

	TokenVerifier middleware.AccessVerifier
	TrafficRepo   repository.TrafficRepository
	Gateway       *realtime.Gateway

	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	// ReadinessChecks are probed by /health/ready; any failure flips the
	// endpoint to 503.
	ReadinessChecks map[string]func(context.Context) error

	EnableOTelHTTP bool
}

// NewRouter assembles the middleware pipeline. Order matters: admission
// control runs ahead of every token check, and traffic capture wraps the
// whole API surface so the live feed sees rejected requests too.
func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger(dep.Logger))
	r.Use(middleware.NewRateLimiter(dep.RateLimitMaxRequests, dep.RateLimitWindow, "api").Middleware())

	authn := middleware.AuthMiddleware(dep.TokenVerifier)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		checks := map[string]string{}
		ready := true
		for name, probe := range dep.ReadinessChecks {
			if err := probe(ctx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		response.JSON(w, status, map[string]any{"status": state, "checks": checks})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.TrafficCapture(dep.Logger, dep.TrafficRepo, dep.Gateway))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh-token", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/check-auth", dep.AuthHandler.CheckAuth)
		})

		r.With(authn, adminOnly).Get("/dashboard", dep.DashboardHandler.Snapshot)
		r.With(authn).Get("/download", dep.DownloadHandler.Download)
		r.Get("/version", dep.VersionHandler.Version)
	})

	// The websocket upgrade carries its own token check via the negotiated
	// sub-protocol; it still sits behind admission control above.
	r.Get("/ws/traffic", dep.WSHandler.ServeHTTP)

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
