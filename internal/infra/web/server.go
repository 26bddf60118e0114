package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/adapters/notify"
	"iptv-subscription-backend/internal/infra/api"
	"iptv-subscription-backend/internal/usecase"
)

// Server is the operator-facing surface: JWT-guarded admin API plus the
// Prometheus scrape endpoint. It binds on a separate port from the public API.
type Server struct {
	auth      *AuthManager
	stats     usecase.StatsUseCase
	refunds   usecase.RefundUseCase
	recovery  usecase.RecoveryUseCase
	catalog   usecase.CatalogUseCase
	payments  usecase.PaymentUseCase
	reminders repository.ReminderRepository
	batch     *notify.BatchSender
	log       *zerolog.Logger
}

func NewServer(
	auth *AuthManager,
	stats usecase.StatsUseCase,
	refunds usecase.RefundUseCase,
	recovery usecase.RecoveryUseCase,
	catalog usecase.CatalogUseCase,
	payments usecase.PaymentUseCase,
	reminders repository.ReminderRepository,
	batch *notify.BatchSender,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{
		auth:      auth,
		stats:     stats,
		refunds:   refunds,
		recovery:  recovery,
		catalog:   catalog,
		payments:  payments,
		reminders: reminders,
		batch:     batch,
		log:       &l,
	}
}

// Router assembles the admin route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(api.TraceID(), api.RequestLog(s.log), api.Recover(s.log), api.Timeout(30*time.Second))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/stats", s.handleStats)
			r.Get("/transactions/{id}", s.handleTransaction)
			r.Post("/refunds", s.handleRefund)

			r.Get("/reminders", s.handleRemindersList)
			r.Post("/reminders/{id}/send", s.handleReminderSend)
			r.Post("/reminders/send-all", s.handleRemindersSendAll)

			r.Get("/plans", s.handlePlansList)
			r.Post("/plans", s.handlePlanCreate)
			r.Put("/plans/{id}", s.handlePlanUpdate)
			r.Delete("/plans/{id}", s.handlePlanDelete)

			r.Get("/promos", s.handlePromosList)
			r.Post("/promos", s.handlePromoCreate)
			r.Put("/promos/{id}", s.handlePromoUpdate)
			r.Delete("/promos/{id}", s.handlePromoDelete)
		})
	})

	return r
}

// authMiddleware rejects requests without a valid admin session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
