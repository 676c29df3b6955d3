// Package engine defines the closed set of error kinds shared by the
// normalization and verification components.
package engine

import (
    "errors"
    "fmt"
)

type Kind string

const (
    KindInvalidFormat   Kind = "INVALID_FORMAT"
    KindValidation      Kind = "VALIDATION_ERROR"
    KindConnection      Kind = "CONNECTION_ERROR"
    KindQuotaExceeded   Kind = "QUOTA_EXCEEDED"
    KindNotApproved     Kind = "NOT_APPROVED"
    KindUpstream        Kind = "UPSTREAM_ERROR"
)

// FormatDetails is attached to INVALID_FORMAT errors so callers can render
// actionable diagnostics without re-reading the raw payload.
type FormatDetails struct {
    Preview      string   `json:"preview,omitempty"`
    ReceivedKeys []string `json:"receivedKeys,omitempty"`
    Expected     []string `json:"expectedFormats,omitempty"`
}

// QuotaDetails is attached to QUOTA_EXCEEDED errors and consumed by the
// retry flow.
type QuotaDetails struct {
    CurrentCount    int `json:"currentCount"`
    Adding          int `json:"adding"`
    NeedToAdd       int `json:"needToAdd"`
    SubscribedCount int `json:"subscribedCount"`
}

// Error is a classified engine error. Exactly one of the payload fields is
// set, matching Kind.
type Error struct {
    Kind    Kind
    Message string
    Format  *FormatDetails
    Quota   *QuotaDetails
    Cause   error
}

func (e *Error) Error() string {
    if e.Message != "" { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }
    return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func Connection(msg string, cause error) *Error {
    return &Error{Kind: KindConnection, Message: msg, Cause: cause}
}

func InvalidFormat(msg string, d *FormatDetails) *Error {
    return &Error{Kind: KindInvalidFormat, Message: msg, Format: d}
}

func QuotaExceeded(d QuotaDetails) *Error {
    return &Error{Kind: KindQuotaExceeded, Message: fmt.Sprintf("capacity exceeded: need %d more", d.NeedToAdd), Quota: &d}
}

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

func NotApproved(msg string) *Error { return &Error{Kind: KindNotApproved, Message: msg} }

func Upstream(msg string, cause error) *Error {
    if msg == "" { msg = "upstream request failed" }
    return &Error{Kind: KindUpstream, Message: msg, Cause: cause}
}

// KindOf extracts the classified kind of err, or "" when err is not an
// engine error.
func KindOf(err error) Kind {
    var e *Error
    if errors.As(err, &e) { return e.Kind }
    return ""
}
