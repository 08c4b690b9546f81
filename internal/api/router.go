// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/tourbook/internal/auth"
	"github.com/tomtom215/tourbook/internal/middleware"
)

// Router wires the handler into a Chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Probes stay outside the request metrics and rate limits.
	r.Get("/healthz", router.handler.Healthz)
	r.Get("/readyz", router.handler.Readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.With(router.chiMiddleware.RateLimit()).Post("/checkout", router.handler.CreateCheckout)
		r.Get("/checkout/session/{id}", router.handler.CheckoutSession)

		// Provider retries must never be rate limited away.
		r.Post("/webhooks/payments", router.handler.PaymentsWebhook)

		if a := router.handler.deps.Admin; a != nil {
			r.Route("/admin", func(r chi.Router) {
				r.With(router.chiMiddleware.RateLimitLogin()).Post("/token", router.handler.AdminToken)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin(a.Tokens))
					r.Get("/bookings", router.handler.AdminListBookings)
					r.Get("/bookings/{sessionId}", router.handler.AdminGetBooking)
					r.Post("/bookings/{sessionId}/resend-invoice", router.handler.AdminResendInvoice)
				})
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondClientError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondClientError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
