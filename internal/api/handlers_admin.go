// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/auth"
	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/notify"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminToken handles POST /admin/token.
// @Summary Issue an admin token
// @Tags Admin
// @Accept json
// @Produce json
// @Param credentials body tokenRequest true "Admin credentials"
// @Success 200 {object} tokenResponse
// @Failure 400 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /admin/token [post]
func (h *Handler) AdminToken(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	a := h.deps.Admin

	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		rw.BadRequest("username and password are required")
		return
	}

	ip := clientIP(r)
	subjects := []string{"user:" + strings.ToLower(req.Username), "ip:" + ip}
	if locked, until := a.Lockout.Locked(subjects...); locked {
		retry := int(math.Ceil(time.Until(until).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		h.record(r.Context(), audit.EventTypeAdminLoginFailed, audit.OutcomeFailure, "", "locked out",
			map[string]string{"username": req.Username, "ip": ip})
		rw.TooManyRequests("too many failed attempts, try again later")
		return
	}

	if err := a.Credentials.Verify(req.Username, req.Password); err != nil {
		a.Lockout.Fail(subjects...)
		logging.Ctx(r.Context()).Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("ip", ip).
			Msg("admin login failed")
		h.record(r.Context(), audit.EventTypeAdminLoginFailed, audit.OutcomeFailure, "", "invalid credentials",
			map[string]string{"username": req.Username, "ip": ip})
		rw.Unauthorized("invalid credentials")
		return
	}
	a.Lockout.Succeed(subjects...)

	token, expires, err := a.Tokens.GenerateToken(req.Username)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("token signing failed")
		rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "could not issue token")
		return
	}
	ctx := audit.WithActor(r.Context(), "admin:"+req.Username)
	h.record(ctx, audit.EventTypeAdminLogin, audit.OutcomeSuccess, "", "token issued", map[string]string{"ip": ip})

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}

// AdminListBookings handles GET /admin/bookings.
// @Summary List bookings
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending, paid, canceled)"
// @Param email query string false "Filter by customer email"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} APIResponse{data=[]models.Booking}
// @Failure 400 {object} APIResponse
// @Failure 401 {object} APIResponse
// @Router /admin/bookings [get]
func (h *Handler) AdminListBookings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	filter := booking.ListFilter{
		Status: models.BookingStatus(q.Get("status")),
		Email:  strings.ToLower(strings.TrimSpace(q.Get("email"))),
		Limit:  getIntParam(q.Get("limit"), 50),
		Offset: getIntParam(q.Get("offset"), 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		rw.BadRequest("status must be one of pending, paid, canceled")
		return
	}
	if filter.Limit < 1 || filter.Limit > booking.MaxListLimit || filter.Offset < 0 {
		rw.BadRequest("limit must be 1-" + strconv.Itoa(booking.MaxListLimit) + " and offset non-negative")
		return
	}

	list, err := h.deps.Bookings.List(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	rw.SuccessWithPagination(list, &PaginationMeta{
		Count:   len(list),
		Offset:  filter.Offset,
		Limit:   filter.Limit,
		HasMore: len(list) == filter.Limit,
	})
}

// AdminGetBooking handles GET /admin/bookings/{sessionId}.
// @Summary Get a booking
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Checkout session ID"
// @Success 200 {object} APIResponse{data=models.Booking}
// @Failure 401 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /admin/bookings/{sessionId} [get]
func (h *Handler) AdminGetBooking(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	b, ok := h.loadBooking(rw, r)
	if !ok {
		return
	}
	rw.Success(b)
}

type resendResult struct {
	SessionID string         `json:"sessionId"`
	Outcome   notify.Outcome `json:"outcome"`
}

// AdminResendInvoice handles POST /admin/bookings/{sessionId}/resend-invoice.
// @Summary Resend the invoice email
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Checkout session ID"
// @Success 200 {object} APIResponse{data=resendResult}
// @Failure 401 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 502 {object} APIResponse
// @Router /admin/bookings/{sessionId}/resend-invoice [post]
func (h *Handler) AdminResendInvoice(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Resender == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "notifications are not configured")
		return
	}
	b, ok := h.loadBooking(rw, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		ctx = audit.WithActor(ctx, "admin:"+claims.Username)
	}

	outcome, err := h.deps.Resender.Resend(ctx, b)
	switch {
	case errors.Is(err, notify.ErrNotPaid):
		rw.Conflict("only paid bookings have an invoice")
		return
	case err != nil:
		h.record(ctx, audit.EventTypeAdminResend, audit.OutcomeFailure, b.StripeSessionID, err.Error(), nil)
		rw.ExternalServiceError("email", err)
		return
	}

	h.record(ctx, audit.EventTypeAdminResend, audit.OutcomeSuccess, b.StripeSessionID, string(outcome), nil)
	rw.Success(resendResult{SessionID: b.StripeSessionID, Outcome: outcome})
}

func (h *Handler) loadBooking(rw *ResponseWriter, r *http.Request) (*models.Booking, bool) {
	id := chi.URLParam(r, "sessionId")
	if id == "" || len(id) > 255 {
		rw.BadRequest("invalid session id")
		return nil, false
	}
	b, err := h.deps.Bookings.GetBySessionID(r.Context(), id)
	if errors.Is(err, booking.ErrNotFound) {
		rw.NotFound("booking not found")
		return nil, false
	}
	if err != nil {
		rw.DatabaseError(err)
		return nil, false
	}
	return b, true
}

// getIntParam parses value, falling back to def when empty. Malformed
// input returns -1 so range checks reject it.
func getIntParam(value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// clientIP returns the request IP without port. RealIP has already applied
// X-Forwarded-For when the router uses it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
