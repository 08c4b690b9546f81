// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package notify sends the booking confirmation: a PDF invoice attached to
// one localized email per paid session.
//
// Delivery is exactly-once per session through the invoice marker in the
// ledger. The marker is written only after the provider accepted the email,
// so a failed send is retried by the next provider event for the session.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Error codes for SendError.
const (
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"
	ErrorCodeInvalidRecipient = "INVALID_RECIPIENT"
	ErrorCodeAuthFailed       = "AUTH_FAILED"
	ErrorCodeSenderRejected   = "SENDER_REJECTED"
	ErrorCodeConnectionFailed = "CONNECTION_FAILED"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeContentTooLarge  = "CONTENT_TOO_LARGE"
	ErrorCodeServerError      = "SERVER_ERROR"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeUnavailable      = "UNAVAILABLE"
	ErrorCodeUnknown          = "UNKNOWN"
)

// Attachment is a file sent with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound email.
type Message struct {
	To          string
	ReplyTo     string
	BCC         string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment

	// IdempotencyKey lets the provider drop duplicate submissions.
	IdempotencyKey string
	Tags           map[string]string
}

// Mailer delivers messages. It returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// SendError is a classified delivery failure.
type SendError struct {
	Code      string
	Status    int
	Transient bool
	Message   string
	Err       error
}

func (e *SendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("email %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("email %s: %s", e.Code, e.Message)
}

func (e *SendError) Unwrap() error { return e.Err }

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}

func classifyStatus(status int) string {
	switch {
	case status == 401:
		return ErrorCodeAuthFailed
	case status == 403:
		return ErrorCodeSenderRejected
	case status == 413:
		return ErrorCodeContentTooLarge
	case status == 422 || status == 400:
		return ErrorCodeInvalidRecipient
	case status == 429:
		return ErrorCodeRateLimited
	case status >= 500:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}

func isTransientCode(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited, ErrorCodeServerError, ErrorCodeUnavailable:
		return true
	default:
		return false
	}
}
