package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/metrics"
	red "iptv-subscription-backend/internal/infra/redis"
	"iptv-subscription-backend/internal/usecase"
)

// Server is the public, buyer-facing HTTP surface: checkout, gateway
// webhooks, status polling and the cron trigger endpoints.
type Server struct {
	checkout   usecase.CheckoutUseCase
	payments   usecase.PaymentUseCase
	recovery   usecase.RecoveryUseCase
	plans      repository.PlanRepository
	subs       repository.SubscriptionRepository
	limiter    *red.RateLimiter
	validate   *validator.Validate
	corsOrigin []string
	cronSecret string
	log        *zerolog.Logger
}

func NewServer(
	checkout usecase.CheckoutUseCase,
	payments usecase.PaymentUseCase,
	recovery usecase.RecoveryUseCase,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	limiter *red.RateLimiter,
	corsOrigins []string,
	cronSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "PublicAPI").Logger()
	return &Server{
		checkout:   checkout,
		payments:   payments,
		recovery:   recovery,
		plans:      plans,
		subs:       subs,
		limiter:    limiter,
		validate:   validator.New(),
		corsOrigin: corsOrigins,
		cronSecret: cronSecret,
		log:        &l,
	}
}

// Router assembles the public route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(30*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.checkoutLimit()).Post("/checkout", s.handleCheckout)
		r.Get("/plans", s.handlePlans)
		r.Get("/payments/{id}", s.handlePaymentStatus)

		// Gateways disagree on webhook verbs; the crypto provider calls back
		// with GET, Stripe POSTs.
		r.Get("/webhooks/crypto", s.handleCryptoWebhook)
		r.Post("/webhooks/crypto", s.handleCryptoWebhook)
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		r.Route("/cron", func(r chi.Router) {
			r.Use(BearerGuard(s.cronSecret))
			r.Post("/abandoned", s.handleCronAbandoned)
			r.Post("/expire", s.handleCronExpire)
		})
	})

	return r
}

func (s *Server) checkoutLimit() func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(s.limiter, "checkout", 10, time.Minute, s.log)
}

func (s *Server) handleCronAbandoned(w http.ResponseWriter, r *http.Request) {
	scanned, created, err := s.recovery.DetectAbandoned(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("abandoned sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"scanned": scanned, "created": created})
}

func (s *Server) handleCronExpire(w http.ResponseWriter, r *http.Request) {
	n, err := s.subs.ExpireDue(r.Context(), nil, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("expiry sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": n})
}
