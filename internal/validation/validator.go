// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package validation wraps go-playground/validator with a shared instance,
// booking-specific tags and human-readable messages.
//
// Field names in messages follow the JSON names of the request, so a
// failure on Customer.Email reads "customer.email must be a valid email
// address".
//
// Custom tags:
//   - notpast: a YYYY-MM-DD string that is today or later in the business
//     timezone (see SetClock)
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar date format accepted by booking requests.
const DateLayout = "2006-01-02"

var (
	validate     *validator.Validate
	validateOnce sync.Once

	clockMu  sync.RWMutex
	location = time.UTC
	now      = time.Now
)

// SetClock configures the timezone that defines "today" and the time source.
// A nil now keeps time.Now.
func SetClock(loc *time.Location, nowFn func() time.Time) {
	clockMu.Lock()
	defer clockMu.Unlock()
	if loc != nil {
		location = loc
	}
	if nowFn != nil {
		now = nowFn
	}
}

// Today returns the current calendar date at midnight in the business timezone.
func Today() time.Time {
	clockMu.RLock()
	loc, fn := location, now
	clockMu.RUnlock()
	y, m, d := fn().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD string in the business timezone.
func ParseDate(s string) (time.Time, error) {
	clockMu.RLock()
	loc := location
	clockMu.RUnlock()
	return time.ParseInLocation(DateLayout, s, loc)
}

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// First returns the first failure message, which is what clients see.
func (ve *RequestValidationError) First() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	return ve.Fields[0].Message
}

// GetValidator returns the shared validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("notpast", notPast); err != nil {
			panic(fmt.Sprintf("register notpast: %v", err))
		}
		validate = v
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	default:
		return name
	}
}

// notPast accepts a date string that is today or later. Malformed dates are
// left to the datetime tag.
func notPast(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	d, err := ParseDate(s)
	if err != nil {
		return true
	}
	return !d.Before(Today())
}

// ValidateStruct runs the shared validator and translates the result.
// It returns nil when s is valid.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}

	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		field := fieldPath(fe)
		out[i] = FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe, field),
		}
	}
	return &RequestValidationError{Fields: out}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

var messages = map[string]string{
	"required":           "%s is required",
	"email":              "%s must be a valid email address",
	"iso4217":            "%s must be a valid ISO 4217 currency code",
	"notpast":            "%s cannot be in the past",
	"bcp47_language_tag": "%s must be a valid language tag",
}

var messagesWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translate(fe validator.FieldError, field string) string {
	tag := fe.Tag()
	if tpl, ok := messages[tag]; ok {
		return fmt.Sprintf(tpl, field)
	}
	if tpl, ok := messagesWithParam[tag]; ok {
		return fmt.Sprintf(tpl, field, fe.Param())
	}
	switch tag {
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, sibling(field, fe.Param()))
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}

// sibling renders the param of a cross-field tag next to the failing field,
// so "tour.slug" with param "Title" reads "tour.title".
func sibling(field, param string) string {
	prefix := ""
	if i := strings.LastIndex(field, "."); i >= 0 {
		prefix = field[:i+1]
	}
	return prefix + strings.ToLower(param)
}
