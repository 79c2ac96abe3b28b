package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sportshub/venue-booking/internal/observability"
	"github.com/sportshub/venue-booking/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Route("/v1/booking-requests", func(r chi.Router) {
		r.With(RequireIdempotencyKey).Post("/", h.CreateBookingRequest)
		r.Get("/sent", h.SentRequests)
		r.Get("/received", h.ReceivedRequests)
		r.Post("/{id}/decide", h.DecideRequest)
		r.Post("/{id}/cancel", h.CancelRequest)
	})

	// Payments and tokens carry their own idempotency semantics: the
	// ledger key and the issuance CAS make naive retries harmless.
	r.Post("/v1/payments/initiate", h.InitiatePayment)
	r.Post("/v1/payments/callback", h.PaymentCallback)

	r.Post("/v1/tokens/generate", h.GenerateToken)
	r.Post("/v1/tokens/extend", h.ExtendToken)
	r.Post("/v1/tokens/revoke", h.RevokeToken)
	r.Post("/v1/tokens/verify", h.VerifyToken)
	r.Get("/v1/tokens/{code}/event", h.TokenEvent)

	r.Post("/v1/events", h.CreateEvent)
	r.Get("/v1/events/{id}", h.GetEvent)

	r.Post("/v1/venues", h.CreateVenue)
	r.Get("/v1/venues/{id}", h.GetVenue)

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
