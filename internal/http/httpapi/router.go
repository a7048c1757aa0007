package httpapi

import (
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"dogemint/internal/http/handlers"
	"dogemint/internal/middleware"
)

// NewRouter wires the API surface with the shared middleware chain.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()

	origins := strings.Split(app.Config.AllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(origins),
		middleware.Logger(app.Logger),
	)

	// Health + metrics
	r.Get("/v1/healthz", app.Health)
	r.Method(stdhttp.MethodGet, "/metrics", app.Metrics())

	// Wallet auth
	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		r.Post("/challenge", app.AuthChallenge)
		r.Post("/verify", app.AuthVerify)
	})

	// Minting
	r.Route("/v1/mint", func(r chi.Router) {
		// Public read paths for pollers and landing pages.
		r.Get("/status/{session_id}", app.MintStatus)
		r.Get("/stats", app.MintStats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.Config.JWTSecret))
			r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
			r.Post("/start", app.MintStart)
			r.Post("/confirm-payment", app.MintConfirmPayment)
			r.Post("/cancel/{session_id}", app.MintCancel)
		})
	})

	// Gallery
	r.Get("/v1/artifacts/{token_id}", app.ArtifactByToken)

	return r
}
