// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/tourbook/internal/logging"
)

const (
	seenPrefix    = "seen:"
	invoicePrefix = "invoice:"

	conflictRetries = 5
)

// Badger stores the ledger in an embedded key-value store. Seen-event keys
// expire after the configured TTL; invoice markers never expire.
type Badger struct {
	db     *badger.DB
	ttl    time.Duration
	owned  bool
	mu     sync.RWMutex
	closed bool
}

// NewBadger wraps db. When owned is true Close also closes db.
func NewBadger(db *badger.DB, eventTTL time.Duration, owned bool) *Badger {
	return &Badger{db: db, ttl: eventTTL, owned: owned}
}

func (b *Badger) open() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Seen implements EventLedger.
func (b *Badger) Seen(_ context.Context, eventID string) (bool, error) {
	return b.has([]byte(seenPrefix + eventID))
}

// MarkSeen implements EventLedger.
func (b *Badger) MarkSeen(ctx context.Context, eventID, eventType string) (bool, error) {
	if err := b.open(); err != nil {
		return false, err
	}
	key := []byte(seenPrefix + eventID)
	inserted := false
	err := b.update(ctx, func(txn *badger.Txn) error {
		inserted = false
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e := badger.NewEntry(key, []byte(eventType))
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		inserted = true
		return txn.SetEntry(e)
	})
	if err != nil {
		return false, fmt.Errorf("mark event %s seen: %w", eventID, err)
	}
	return inserted, nil
}

// InvoiceSent implements InvoiceMarkers.
func (b *Badger) InvoiceSent(_ context.Context, sessionID string) (bool, error) {
	return b.has([]byte(invoicePrefix + sessionID))
}

// MarkInvoiceSent implements InvoiceMarkers.
func (b *Badger) MarkInvoiceSent(ctx context.Context, sessionID, messageID string) error {
	if err := b.open(); err != nil {
		return err
	}
	key := []byte(invoicePrefix + sessionID)
	err := b.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, []byte(messageID))
	})
	if err != nil {
		return fmt.Errorf("mark invoice sent for %s: %w", sessionID, err)
	}
	return nil
}

// ClearInvoiceSent implements InvoiceMarkers.
func (b *Badger) ClearInvoiceSent(ctx context.Context, sessionID string) error {
	if err := b.open(); err != nil {
		return err
	}
	key := []byte(invoicePrefix + sessionID)
	return b.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// RunGC rewrites value log files until badger finds nothing left to
// reclaim. Expired seen-event keys only free disk space this way.
func (b *Badger) RunGC(discardRatio float64) error {
	if err := b.open(); err != nil {
		return err
	}
	for {
		err := b.db.RunValueLogGC(discardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
}

// Close implements Ledger.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.owned {
		return b.db.Close()
	}
	return nil
}

func (b *Badger) has(key []byte) (bool, error) {
	if err := b.open(); err != nil {
		return false, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// update retries fn on optimistic transaction conflicts.
func (b *Badger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		logging.Debug().Int("attempt", attempt+1).Msg("badger ledger conflict, retrying")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
