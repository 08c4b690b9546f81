// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

type healthResponse struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness. It never touches dependencies.
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// BeginDrain makes /readyz fail from now on. The server keeps serving
// requests until it is shut down.
func (h *Handler) BeginDrain() {
	h.draining.Store(true)
}

// Readyz pings every registered dependency.
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /readyz [get]
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "draining",
			Uptime: time.Since(h.startTime).Seconds(),
		})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps.Ready))
	for name := range h.deps.Ready {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).Seconds(),
		Checks: make(map[string]string, len(names)),
	}
	status := http.StatusOK
	for _, name := range names {
		if err := h.deps.Ready[name].Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}
