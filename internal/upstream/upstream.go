// Package upstream classifies failures of third-party content providers.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds every call to a content provider.
const DefaultTimeout = 15 * time.Second

// ErrBodyTooLarge is returned when a provider response exceeds the size a
// client is willing to read.
var ErrBodyTooLarge = errors.New("upstream: response body too large")

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Status)
}

// Status maps err to the code reported to callers: the provider's own status
// for StatusError, 504 for timeouts and 502 for anything else.
func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	if IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// IsTimeout reports whether err came from a deadline being exceeded.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Check returns a StatusError when status is outside the 2xx range.
func Check(provider string, status int) error {
	if status < 200 || status > 299 {
		return &StatusError{Provider: provider, Status: status}
	}
	return nil
}

// IsUpstream reports whether err describes a provider failure (bad status,
// timeout, oversized body or transport error) as opposed to a local fault.
func IsUpstream(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) || IsTimeout(err) || errors.Is(err, ErrBodyTooLarge) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
