// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/breaker"
	"github.com/tomtom215/tourbook/internal/catalog"
	"github.com/tomtom215/tourbook/internal/checkout"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/payments"
	"github.com/tomtom215/tourbook/internal/validation"
)

// CreateCheckout handles POST /checkout.
// @Summary Open a checkout session
// @Description Prices the tour from the catalog and opens a hosted payment session. Any client price is ignored. Repeats of the same request within ten minutes return the same session.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body checkout.Request true "Booking request"
// @Param Accept-Language header string false "Preferred checkout locale"
// @Success 200 {object} checkout.Result
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Failure 429 {object} errorBody
// @Failure 500 {object} errorBody
// @Failure 502 {object} errorBody
// @Failure 503 {object} errorBody
// @Router /checkout [post]
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCheckoutBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondClientError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondClientError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var req checkout.Request
	if err := json.Unmarshal(body, &req); err != nil {
		respondClientError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.deps.Checkout.Create(r.Context(), req, r.Header.Get("Accept-Language"))
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// checkoutError maps pipeline errors onto the public error shapes.
func (h *Handler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.Ctx(r.Context())

	var verr *validation.RequestValidationError
	var perr *payments.ProviderError
	switch {
	case errors.As(err, &verr):
		respondClientError(w, http.StatusBadRequest, verr.First())
	case errors.Is(err, catalog.ErrTourNotFound):
		respondClientError(w, http.StatusNotFound, "tour not found")
	case errors.Is(err, breaker.ErrUnavailable):
		log.Warn().Err(err).Msg("checkout rejected by open circuit")
		respondServerError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"payments are temporarily unavailable, please try again shortly")
	case errors.As(err, &perr):
		code := perr.Code
		if code == "" {
			code = ErrCodeExternalServiceFail
		}
		if perr.ClientFault() {
			log.Warn().Err(err).Str("provider_code", perr.Code).Msg("provider rejected checkout request")
			writeJSON(w, http.StatusBadRequest, errorBody{Error: perr.Message, Code: code})
			return
		}
		log.Error().Err(err).Str("provider_code", perr.Code).Msg("provider failed to create session")
		respondServerError(w, http.StatusBadGateway, code, perr.Message)
	case errors.Is(err, checkout.ErrMisconfigured):
		log.Error().Err(err).Msg("checkout misconfigured")
		respondServerError(w, http.StatusInternalServerError, ErrCodeMisconfigured, "checkout is not available")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("checkout timed out")
		respondServerError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "checkout timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		log.Debug().Err(err).Msg("checkout canceled by client")
	default:
		log.Error().Err(err).Msg("checkout failed")
		respondServerError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

// sessionStatus is the success page view of a session.
type sessionStatus struct {
	SessionID   string               `json:"sessionId"`
	Status      models.BookingStatus `json:"status"`
	AmountTotal int64                `json:"amountTotal,omitempty"`
	Currency    string               `json:"currency,omitempty"`
	TourTitle   string               `json:"tourTitle,omitempty"`
	Date        string               `json:"date,omitempty"`
	Persons     int                  `json:"persons,omitempty"`
}

// CheckoutSession handles GET /checkout/session/{id}. The booking row wins;
// before the webhook lands the provider's view is translated instead.
// @Summary Get booking status for a session
// @Tags Checkout
// @Produce json
// @Param id path string true "Checkout session ID"
// @Success 200 {object} sessionStatus
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Failure 502 {object} errorBody
// @Router /checkout/session/{id} [get]
func (h *Handler) CheckoutSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > 255 {
		respondClientError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	b, err := h.deps.Bookings.GetBySessionID(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sessionStatus{
			SessionID:   b.StripeSessionID,
			Status:      b.Status,
			AmountTotal: b.Total,
			Currency:    b.Currency,
			TourTitle:   b.TourTitle,
			Date:        b.Date,
			Persons:     b.Persons,
		})
		return
	case !errors.Is(err, booking.ErrNotFound):
		logging.Ctx(r.Context()).Error().Err(err).Str("session_id", sanitizeLogValue(id)).Msg("booking lookup failed")
		respondServerError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "booking lookup failed")
		return
	}

	st, err := h.deps.Checkout.Lookup(r.Context(), id)
	if err != nil {
		var perr *payments.ProviderError
		if errors.Is(err, payments.ErrSessionNotFound) || (errors.As(err, &perr) && perr.Status == http.StatusNotFound) {
			respondClientError(w, http.StatusNotFound, "session not found")
			return
		}
		logging.Ctx(r.Context()).Warn().Err(err).Str("session_id", sanitizeLogValue(id)).Msg("session lookup failed")
		respondServerError(w, http.StatusBadGateway, ErrCodeExternalServiceFail, "session lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, sessionStatus{
		SessionID:   st.SessionID,
		Status:      statusFromProvider(st),
		AmountTotal: st.AmountTotal,
		Currency:    st.Currency,
		TourTitle:   st.TourTitle,
		Date:        st.Date,
		Persons:     st.Quantity,
	})
}

func statusFromProvider(st *checkout.Status) models.BookingStatus {
	switch {
	case st.PaymentStatus == payments.PaymentStatusPaid, st.PaymentStatus == payments.PaymentStatusNoPaymentRequired:
		return models.StatusPaid
	case st.Status == "expired":
		return models.StatusCanceled
	default:
		return models.StatusPending
	}
}
