package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"iptv-subscription-backend/internal/domain"
	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/usecase"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("failed admin login")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Overview(r.Context())
	if err != nil {
		http.Error(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.payments.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, transactionView(t))
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"` // empty = full remaining amount
	Reason        string `json:"reason"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TransactionID == "" {
		http.Error(w, "transaction_id required", http.StatusBadRequest)
		return
	}
	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			http.Error(w, "invalid amount", http.StatusBadRequest)
			return
		}
	}

	t, err := s.refunds.Refund(r.Context(), req.TransactionID, amount, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrUnsupported):
			http.Error(w, "Refunds are only available for card payments", http.StatusUnprocessableEntity)
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			s.log.Error().Err(err).Str("tx_id", req.TransactionID).Msg("refund failed")
			http.Error(w, "Refund failed", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, transactionView(t))
}

func (s *Server) handleRemindersList(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	reminders, err := s.reminders.ListAll(r.Context(), nil, offset, limit)
	if err != nil {
		http.Error(w, "Failed to list reminders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data   []*model.AbandonedPaymentReminder `json:"data"`
		Limit  int                               `json:"limit"`
		Offset int                               `json:"offset"`
	}{Data: reminders, Limit: limit, Offset: offset})
}

func (s *Server) handleReminderSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.recovery.DispatchReminder(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Reminder not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Dispatch failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleRemindersSendAll dispatches every reminder on file in rate-limited
// batches.
func (s *Server) handleRemindersSendAll(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.reminders.ListAll(r.Context(), nil, 0, 1000)
	if err != nil {
		http.Error(w, "Failed to list reminders", http.StatusInternalServerError)
		return
	}
	ids := make([]string, 0, len(reminders))
	for _, rem := range reminders {
		ids = append(ids, rem.ID)
	}
	sent := s.batch.Run(r.Context(), ids, s.recovery.DispatchReminder)
	writeJSON(w, http.StatusOK, map[string]int{"dispatched": sent, "total": len(ids)})
}

// ===== Plans =====

type planRequest struct {
	Name           string `json:"name"`
	DurationMonths int    `json:"duration_months"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
	Published      bool   `json:"published"`
}

func (p planRequest) toInput() (usecase.PlanInput, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return usecase.PlanInput{}, domain.ErrInvalidArgument
	}
	return usecase.PlanInput{
		Name:           p.Name,
		DurationMonths: p.DurationMonths,
		Price:          price,
		Currency:       p.Currency,
		Published:      p.Published,
	}, nil
}

func (s *Server) handlePlansList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.catalog.ListPlans(r.Context())
	if err != nil {
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in, err := req.toInput()
	if err != nil {
		http.Error(w, "Invalid price", http.StatusBadRequest)
		return
	}
	plan, err := s.catalog.CreatePlan(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create plan", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in, err := req.toInput()
	if err != nil {
		http.Error(w, "Invalid price", http.StatusBadRequest)
		return
	}
	plan, err := s.catalog.UpdatePlan(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Plan not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to update plan", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Plan not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete plan", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Promo codes =====

type promoRequest struct {
	Code              string     `json:"code"`
	DiscountType      string     `json:"discount_type"`
	DiscountValue     string     `json:"discount_value"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	MaxUses           *int       `json:"max_uses"`
	MinPurchaseAmount string     `json:"min_purchase_amount"`
	Active            bool       `json:"active"`
}

func (p promoRequest) toInput() (usecase.PromoInput, error) {
	value, err := decimal.NewFromString(p.DiscountValue)
	if err != nil {
		return usecase.PromoInput{}, domain.ErrInvalidArgument
	}
	minPurchase := decimal.Zero
	if p.MinPurchaseAmount != "" {
		minPurchase, err = decimal.NewFromString(p.MinPurchaseAmount)
		if err != nil {
			return usecase.PromoInput{}, domain.ErrInvalidArgument
		}
	}
	return usecase.PromoInput{
		Code:              p.Code,
		DiscountType:      model.DiscountType(p.DiscountType),
		DiscountValue:     value,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		MaxUses:           p.MaxUses,
		MinPurchaseAmount: minPurchase,
		Active:            p.Active,
	}, nil
}

func (s *Server) handlePromosList(w http.ResponseWriter, r *http.Request) {
	promos, err := s.catalog.ListPromos(r.Context())
	if err != nil {
		http.Error(w, "Failed to list promo codes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

func (s *Server) handlePromoCreate(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in, err := req.toInput()
	if err != nil {
		http.Error(w, "Invalid amounts", http.StatusBadRequest)
		return
	}
	promo, err := s.catalog.CreatePromo(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			http.Error(w, "Code already exists", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create promo code", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, promo)
}

func (s *Server) handlePromoUpdate(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in, err := req.toInput()
	if err != nil {
		http.Error(w, "Invalid amounts", http.StatusBadRequest)
		return
	}
	promo, err := s.catalog.UpdatePromo(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Promo code not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrAlreadyExists):
			http.Error(w, "Code already exists", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to update promo code", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, promo)
}

func (s *Server) handlePromoDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeletePromo(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Promo code not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete promo code", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== helpers =====

type transactionJSON struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PlanID        string     `json:"plan_id"`
	Amount        string     `json:"amount"`
	Discount      string     `json:"discount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	PromoCode     string     `json:"promo_code,omitempty"`
	RefundAmount  string     `json:"refund_amount,omitempty"`
	RefundRef     string     `json:"refund_ref,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func transactionView(t *model.Transaction) transactionJSON {
	out := transactionJSON{
		ID:            t.ID,
		Email:         t.Email,
		PlanID:        t.PlanID,
		Amount:        t.FinalAmount.StringFixed(2),
		Discount:      t.DiscountAmount.StringFixed(2),
		Currency:      t.Currency,
		Method:        string(t.Method),
		Status:        string(t.Status),
		PromoCode:     t.PromoCode,
		RefundRef:     t.RefundRef,
		InvoiceNumber: t.InvoiceNumber,
		PaidAt:        t.PaidAt,
		CreatedAt:     t.CreatedAt,
	}
	if !t.RefundAmount.IsZero() {
		out.RefundAmount = t.RefundAmount.StringFixed(2)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
