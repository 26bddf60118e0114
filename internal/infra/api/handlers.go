package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/infra/logging"
	"iptv-subscription-backend/internal/usecase"
)

// checkoutRequest is the public checkout payload.
type checkoutRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Contact       string `json:"contact" validate:"omitempty,e164"`
	PlanID        string `json:"plan_id" validate:"required"`
	Method        string `json:"method" validate:"required,oneof=crypto card"`
	PromoCode     string `json:"promo_code" validate:"omitempty,max=64"`
	AffiliateCode string `json:"affiliate_code" validate:"omitempty,max=64"`
}

type checkoutResponse struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
	Amount        string `json:"amount"`
	Discount      string `json:"discount"`
	Currency      string `json:"currency"`
	PromoApplied  bool   `json:"promo_applied"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	res, err := s.checkout.Initiate(r.Context(), usecase.CheckoutRequest{
		Email:         req.Email,
		Contact:       req.Contact,
		PlanID:        req.PlanID,
		Method:        model.PaymentMethod(req.Method),
		PromoCode:     req.PromoCode,
		AffiliateCode: req.AffiliateCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "unknown plan or invalid request")
		case errors.Is(err, domain.ErrGatewayNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "payment method unavailable")
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("checkout failed")
			writeError(w, http.StatusBadGateway, "checkout failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		TransactionID: res.Transaction.ID,
		PaymentURL:    res.PaymentURL,
		Amount:        res.Transaction.FinalAmount.StringFixed(2),
		Discount:      res.Transaction.DiscountAmount.StringFixed(2),
		Currency:      res.Transaction.Currency,
		PromoApplied:  res.Transaction.PromoCode != "",
	})
}

type planResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DurationMonths int    `json:"duration_months"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListPublished(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{
			ID:             p.ID,
			Name:           p.Name,
			DurationMonths: p.DurationMonths,
			Price:          p.Price.StringFixed(2),
			Currency:       p.Currency,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type paymentStatusResponse struct {
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"status"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// handlePaymentStatus is the read-only poll endpoint. It reports the ledger
// state as is and never mutates it; only the webhook path completes payments.
func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := s.payments.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		TransactionID: t.ID,
		Status:        string(t.Status),
		Amount:        t.FinalAmount.StringFixed(2),
		Currency:      t.Currency,
		PaidAt:        t.PaidAt,
	})
}

// handleCryptoWebhook processes the crypto gateway callback. The response is
// intentionally terse; the gateway only cares about the status code.
func (s *Server) handleCryptoWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		if len(r.PostForm) > 0 {
			q = r.PostForm
		}
	}
	invoice := q.Get("invoice")
	if invoice == "" {
		writeError(w, http.StatusBadRequest, "missing invoice")
		return
	}

	t, err := s.payments.HandleCryptoCallback(r.Context(), invoice, q.Get("status"), q.Get("amount"), q.Get("currency"), q.Get("hash"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrGatewayNotConfigured):
			writeError(w, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "unknown invoice")
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Str("invoice", invoice).Msg("crypto callback failed")
			writeError(w, http.StatusInternalServerError, "callback failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": string(t.Status)})
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	_, err = s.payments.HandleCardEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrGatewayNotConfigured):
			writeError(w, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, domain.ErrNotFound):
			// Unknown session: acknowledge so Stripe stops retrying, log for ops.
			logging.With(r.Context(), s.log).Warn().Msg("card event for unknown session")
			w.WriteHeader(http.StatusOK)
		default:
			logging.With(r.Context(), s.log).Error().Err(err).Msg("card event failed")
			writeError(w, http.StatusInternalServerError, "event failed")
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
