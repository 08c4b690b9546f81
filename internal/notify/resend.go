// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tourbook/internal/breaker"
	"github.com/tomtom215/tourbook/internal/logging"
)

// DefaultResendBase is the Resend API root.
const DefaultResendBase = "https://api.resend.com"

// ResendConfig configures ResendClient.
type ResendConfig struct {
	APIKey  string
	APIBase string
	From    string

	// FallbackFrom is used when the provider rejects From, typically because
	// its domain is not verified yet.
	FallbackFrom string
	ReplyTo      string
	BCC          string

	Timeout       time.Duration
	RatePerSecond float64
	HTTPClient    *http.Client
}

// ResendClient sends email through the Resend HTTP API.
type ResendClient struct {
	cfg     ResendConfig
	http    *http.Client
	limiter *rate.Limiter
	cb      *breaker.Breaker[string]
	log     zerolog.Logger
}

// NewResendClient builds a client. An empty APIBase uses DefaultResendBase.
func NewResendClient(cfg ResendConfig) (*ResendClient, error) {
	if cfg.APIKey == "" {
		return nil, &SendError{Code: ErrorCodeInvalidConfig, Message: "resend api key is required"}
	}
	if cfg.From == "" {
		return nil, &SendError{Code: ErrorCodeInvalidConfig, Message: "sender address is required"}
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultResendBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &ResendClient{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		cb: breaker.New[string]("resend", breaker.Settings{
			MinRequests:  5,
			FailureRatio: 0.5,
			OpenTimeout:  time.Minute,
			IsSuccessful: func(err error) bool { return !IsTransient(err) },
		}),
		log: logging.WithComponent("resend"),
	}, nil
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendEmail struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	ReplyTo     string             `json:"reply_to,omitempty"`
	BCC         []string           `json:"bcc,omitempty"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Text        string             `json:"text,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
	Tags        []resendTag        `json:"tags,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send implements Mailer.
func (c *ResendClient) Send(ctx context.Context, msg *Message) (string, error) {
	if msg.To == "" {
		return "", &SendError{Code: ErrorCodeInvalidRecipient, Message: "recipient is required"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &SendError{Code: ErrorCodeTimeout, Transient: true, Message: "rate limiter wait aborted", Err: err}
	}

	id, err := c.cb.Execute(func() (string, error) {
		return c.post(ctx, c.cfg.From, msg)
	})
	var se *SendError
	if err != nil && errors.As(err, &se) && se.Code == ErrorCodeSenderRejected &&
		c.cfg.FallbackFrom != "" && c.cfg.FallbackFrom != c.cfg.From {
		c.log.Warn().Str("from", c.cfg.From).Str("fallback", c.cfg.FallbackFrom).
			Msg("sender rejected, retrying with fallback sender")
		id, err = c.cb.Execute(func() (string, error) {
			return c.post(ctx, c.cfg.FallbackFrom, msg)
		})
	}
	if errors.Is(err, breaker.ErrUnavailable) {
		return "", &SendError{Code: ErrorCodeUnavailable, Transient: true, Message: "email provider circuit open", Err: err}
	}
	return id, err
}

func (c *ResendClient) post(ctx context.Context, from string, msg *Message) (string, error) {
	payload := resendEmail{
		From:    from,
		To:      []string{msg.To},
		ReplyTo: firstNonEmpty(msg.ReplyTo, c.cfg.ReplyTo),
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	if bcc := firstNonEmpty(msg.BCC, c.cfg.BCC); bcc != "" {
		payload.BCC = []string{bcc}
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	for k, v := range msg.Tags {
		payload.Tags = append(payload.Tags, resendTag{Name: k, Value: v})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SendError{Code: ErrorCodeUnknown, Message: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", &SendError{Code: ErrorCodeInvalidConfig, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Tourbook/1.0")
	if msg.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", msg.IdempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		code := classifyTransportError(err)
		return "", &SendError{Code: code, Transient: isTransientCode(code), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out resendResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out.ID == "" {
			return "", &SendError{Code: ErrorCodeUnknown, Status: resp.StatusCode, Message: "response has no message id"}
		}
		return out.ID, nil
	}

	code := classifyStatus(resp.StatusCode)
	if resp.StatusCode == 422 && mentionsSender(out) {
		code = ErrorCodeSenderRejected
	}
	message := out.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return "", &SendError{Code: code, Status: resp.StatusCode, Transient: isTransientCode(code), Message: message}
}

// mentionsSender reports provider errors about the from address.
func mentionsSender(r resendResponse) bool {
	m := strings.ToLower(r.Message + " " + r.Name)
	return strings.Contains(m, "domain") || strings.Contains(m, "from")
}

func classifyTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorCodeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCodeUnknown
	}
	return ErrorCodeConnectionFailed
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// LogMailer writes messages to the log instead of sending them. Used in
// development when no provider key is configured.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer returns a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{log: logging.WithComponent("mail")}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg *Message) (string, error) {
	if msg.To == "" {
		return "", &SendError{Code: ErrorCodeInvalidRecipient, Message: "recipient is required"}
	}
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = fmt.Sprintf("%s (%d bytes)", a.Filename, len(a.Content))
	}
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Strs("attachments", names).
		Msg("email not sent, log provider configured")
	return "log-" + msg.IdempotencyKey, nil
}
