package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/payment"
	"ms-payments/internal/settings"
)

type Handler struct {
	Manager    *payment.Manager
	Classifier *payment.Classifier
	Log        *logger.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// Charge submits a single-use token charge for a reservation.
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	var req models.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be greater than zero", http.StatusBadRequest)
		return
	}

	charge, err := h.Manager.ChargeCreditCard(r.Context(), req.Token, req.Amount, req.Event,
		req.ReservationID, req.Email, req.FullName, req.BillingAddress)
	if err != nil {
		if errors.Is(err, settings.ErrMissingConfiguration) ||
			errors.Is(err, payment.ErrInvalidFeeSpec) || errors.Is(err, payment.ErrFeeOverflow) {
			http.Error(w, "Payment is not configured for this event: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// Remote failure: collapse to a localizable message code.
		writeJSON(w, http.StatusPaymentRequired, map[string]string{
			"error_code": h.Classifier.MessageCode(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.ChargeResponse{
		ChargeID: charge.ID,
		Amount:   charge.Amount,
		Currency: string(charge.Currency),
		Status:   string(charge.Status),
	})
}

// Refund refunds a recorded charge, fully unless an amount is given.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req models.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Transaction.TransactionID == "" {
		http.Error(w, "transaction_id is required", http.StatusBadRequest)
		return
	}

	refunded := h.Manager.Refund(r.Context(), req.Transaction, req.Event, req.Amount)
	writeJSON(w, http.StatusOK, map[string]bool{"refunded": refunded})
}

// Info returns the payment information of a recorded charge.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	var req models.InfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.Manager.GetInfo(r.Context(), req.Transaction, req.Event)
	if err != nil {
		http.Error(w, "Payment is not configured for this event: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if info == nil {
		http.Error(w, "Payment information unavailable", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// ConnectAuthorize builds the OAuth authorization URL for an organization.
func (h *Handler) ConnectAuthorize(w http.ResponseWriter, r *http.Request) {
	organizationID := r.URL.Query().Get("organization_id")
	if organizationID == "" {
		http.Error(w, "organization_id is required", http.StatusBadRequest)
		return
	}

	resolver := func(name string) settings.Key {
		return settings.OrganizationKey(name, organizationID)
	}
	connectURL, err := h.Manager.ConnectURL(r.Context(), resolver)
	if err != nil {
		if errors.Is(err, settings.ErrMissingConfiguration) {
			http.Error(w, "Connect is not configured: "+err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Could not build authorization URL: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, connectURL)
}

// ConnectCallback finishes the OAuth flow. The state token must match an
// unconsumed token issued by ConnectAuthorize; the outcome is always a
// renderable ConnectResult.
func (h *Handler) ConnectCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	organizationID := query.Get("organization_id")
	if code == "" || state == "" || organizationID == "" {
		http.Error(w, "code, state and organization_id are required", http.StatusBadRequest)
		return
	}

	if !h.Manager.ConsumeState(r.Context(), state) {
		h.Log.LogSecurity("CONNECT", "callback with unknown or already consumed state token")
		http.Error(w, "Invalid or expired state token", http.StatusBadRequest)
		return
	}

	resolver := func(name string) settings.Key {
		return settings.OrganizationKey(name, organizationID)
	}
	result := h.Manager.StoreConnectedAccount(r.Context(), code, resolver)
	writeJSON(w, http.StatusOK, result)
}

// Webhook accepts gateway webhook deliveries.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read webhook payload", http.StatusBadRequest)
		return
	}

	status := h.Manager.ProcessWebhookEvent(r.Context(), body, r.Header.Get("Stripe-Signature"))
	switch status {
	case payment.WebhookRejected:
		http.Error(w, "Webhook verification failed", http.StatusBadRequest)
	case payment.WebhookIgnored:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true, "processed": false})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true, "processed": true})
	}
}
