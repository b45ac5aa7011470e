package httpadapter

import (
	"net/http"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

func (rt *Router) listPlans(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"key_id": rt.opts.CheckoutKeyID,
		"plans":  rt.svc.Billing.Plans(),
	})
}

func (rt *Router) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode order request", err))
		return
	}
	order, err := rt.svc.Billing.CreateOrder(r.Context(), userIDFromContext(r.Context()), req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":  order,
		"key_id": rt.opts.CheckoutKeyID,
	})
}

func (rt *Router) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var receipt domain.CheckoutReceipt
	if err := decodeJSON(r, &receipt); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode receipt", err))
		return
	}
	account, err := rt.svc.Billing.VerifyPayment(r.Context(), userIDFromContext(r.Context()), receipt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (rt *Router) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := rt.svc.Billing.Account(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.Sessions.Session(r.Context(), userIDFromContext(r.Context())))
}

func (rt *Router) saveSession(w http.ResponseWriter, r *http.Request) {
	var info domain.UserInfo
	if err := decodeJSON(r, &info); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode user info", err))
		return
	}
	if err := rt.svc.Sessions.SaveUserInfo(r.Context(), userIDFromContext(r.Context()), info); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
