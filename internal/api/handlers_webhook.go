// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/webhook"
)

// SignatureHeader carries the provider's HMAC over the raw body.
const SignatureHeader = "Stripe-Signature"

type webhookAck struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

// PaymentsWebhook handles POST /webhooks/payments.
//
// The body is read raw; the signature covers the exact bytes sent.
// @Summary Receive payment provider events
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Provider signature over the raw body"
// @Success 200 {object} webhookAck
// @Failure 400 {object} errorBody
// @Failure 500 {object} errorBody
// @Router /webhooks/payments [post]
func (h *Handler) PaymentsWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondClientError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	sig := r.Header.Get(SignatureHeader)
	if sig == "" {
		respondClientError(w, http.StatusBadRequest, "missing "+SignatureHeader+" header")
		return
	}

	ev, outcome, err := h.deps.Webhooks.Handle(r.Context(), payload, sig)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			respondClientError(w, http.StatusBadRequest, "invalid signature")
			return
		}

		log := logging.Ctx(r.Context()).Error().Err(err).Str("outcome", string(outcome))
		if ev != nil {
			log = log.Str("event_id", ev.ID).Str("event_type", ev.Type)
		}
		if h.deps.Production {
			log.Msg("webhook processing failed, provider will retry")
			respondServerError(w, http.StatusInternalServerError, ErrCodeWebhookFailed, "webhook processing failed")
			return
		}
		log.Msg("webhook processing failed, acknowledged in development mode")
		writeJSON(w, http.StatusOK, webhookAck{Received: true, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}
