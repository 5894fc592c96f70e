package clob

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from the exchange. Rate limits and
// server errors are transient; other client errors are not.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clob API error %d: %s", e.Status, e.Body)
}

func (e *APIError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// RejectionError is a terminal order rejection: the exchange accepted
// the request and refused the order (bad price, insufficient balance).
// Never retried.
type RejectionError struct {
	Msg string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Msg)
}

// IsTransient classifies an error for the retry predicate. Transport
// failures, timeouts, rate limits and 5xx responses qualify; terminal
// rejections and other 4xx responses do not.
func IsTransient(err error) bool {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRejection reports whether the exchange terminally refused an order.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
