// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package ledger

import (
	"context"
	"sync"
)

// Memory is a process-local ledger for development and tests.
type Memory struct {
	mu       sync.Mutex
	seen     map[string]string
	invoices map[string]string
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		seen:     make(map[string]string),
		invoices: make(map[string]string),
	}
}

// Seen implements EventLedger.
func (m *Memory) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[eventID]
	return ok, nil
}

// MarkSeen implements EventLedger.
func (m *Memory) MarkSeen(_ context.Context, eventID, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[eventID]; ok {
		return false, nil
	}
	m.seen[eventID] = eventType
	return true, nil
}

// InvoiceSent implements InvoiceMarkers.
func (m *Memory) InvoiceSent(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.invoices[sessionID]
	return ok, nil
}

// MarkInvoiceSent implements InvoiceMarkers.
func (m *Memory) MarkInvoiceSent(_ context.Context, sessionID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[sessionID]; !ok {
		m.invoices[sessionID] = messageID
	}
	return nil
}

// ClearInvoiceSent implements InvoiceMarkers.
func (m *Memory) ClearInvoiceSent(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invoices, sessionID)
	return nil
}

// Close implements Ledger.
func (m *Memory) Close() error { return nil }
