package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/darkwavepulse/pulse-access/internal/health"
	"github.com/darkwavepulse/pulse-access/internal/http/handler"
	"github.com/darkwavepulse/pulse-access/internal/http/middleware"
	"github.com/darkwavepulse/pulse-access/internal/http/response"
	"github.com/darkwavepulse/pulse-access/internal/service"
)

type Dependencies struct {
	AccessHandler *handler.AccessHandler
	WalletHandler *handler.WalletHandler
	Sessions      *service.SessionService
	CORSOrigins   []string

	// AccessRateLimitRPM throttles the credential-bearing endpoints;
	// APIRateLimitRPM covers everything else.
	AccessRateLimitRPM int
	APIRateLimitRPM    int

	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	accessLimiter := middleware.NewRateLimiter(dep.AccessRateLimitRPM, time.Minute).Middleware()
	sessionAuth := middleware.SessionAuth(dep.Sessions)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/access", func(r chi.Router) {
			r.With(accessLimiter).Post("/redeem", dep.AccessHandler.Redeem)
			r.With(accessLimiter).Post("/login", dep.AccessHandler.Login)
			r.Post("/verify", dep.AccessHandler.Verify)
			r.With(sessionAuth).Post("/logout", dep.AccessHandler.Logout)
		})

		r.With(sessionAuth).Get("/me", dep.AccessHandler.Me)

		r.Route("/wallets", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Post("/", dep.WalletHandler.Import)
			r.Get("/", dep.WalletHandler.List)
			r.Get("/{wallet_id}/key", dep.WalletHandler.Export)
			r.Delete("/{wallet_id}", dep.WalletHandler.Delete)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
