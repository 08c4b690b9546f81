// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/tourbook/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// BufferSize is the async write buffer. Zero writes synchronously.
	BufferSize int

	// WriteTimeout bounds one store write.
	WriteTimeout time.Duration

	// LogToStdout mirrors every event into the application log.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Logger records audit events.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a logger. A nil config uses DefaultConfig.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	l := &Logger{
		config:   config,
		store:    store,
		stopChan: make(chan struct{}),
	}
	if config.BufferSize > 0 {
		l.eventChan = make(chan *Event, config.BufferSize)
		l.wg.Add(1)
		go l.asyncWriter()
	}
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		logging.Info().
			Str("audit_type", string(event.Type)).
			Str("outcome", string(event.Outcome)).
			Str("session_id", event.SessionID).
			Msg(event.Description)
	}
	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.config.WriteTimeout)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("audit_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log records event, filling ID and Timestamp when unset.
func (l *Logger) Log(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Actor == "" {
		event.Actor = ActorSystem
	}

	if l.eventChan == nil {
		l.writeEvent(event)
		return
	}
	select {
	case <-l.stopChan:
		l.writeEvent(event)
		return
	default:
	}
	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Str("audit_type", string(event.Type)).Msg("Audit event buffer full, dropping event")
	}
}

// Record is a shorthand for Log that takes the request id from ctx and
// marshals payload unless it is already raw JSON.
func (l *Logger) Record(ctx context.Context, typ EventType, outcome Outcome, sessionID, description string, payload any) {
	l.Log(&Event{
		Type:        typ,
		Outcome:     outcome,
		SessionID:   sessionID,
		Actor:       actorFromContext(ctx),
		Description: description,
		Payload:     toJSON(payload),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Close drains the buffer and stops the writer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

func toJSON(v any) json.RawMessage {
	switch p := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return p
	case []byte:
		if json.Valid(p) {
			return p
		}
		v = string(p)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

type actorKey struct{}

// WithActor tags ctx so Record attributes events to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return ActorSystem
}
