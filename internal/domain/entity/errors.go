package entity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Standard domain errors
var (
	ErrQuotaExceeded   = errors.New("monthly voice quota exceeded")
	ErrInvalidRequest  = errors.New("invalid request parameters")
	ErrNoValidKey      = errors.New("no valid Gemini API key available")
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrNotFound        = errors.New("the requested resource was not found")
)

// FailureKind is the coarse reason an upstream call failed.
type FailureKind int

const (
	FailureUpstream FailureKind = iota
	FailureNetwork
	FailureAuth
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureAuth:
		return "auth"
	default:
		return "upstream"
	}
}

// ParseFailureKind is the inverse of String. Unknown values yield upstream.
func ParseFailureKind(s string) (FailureKind, bool) {
	switch strings.ToLower(s) {
	case "network":
		return FailureNetwork, true
	case "auth":
		return FailureAuth, true
	case "upstream":
		return FailureUpstream, true
	}
	return FailureUpstream, false
}

// ServiceError is returned by every network adapter so callers never have to
// inspect message text.
type ServiceError struct {
	Kind   FailureKind
	Source string // gemini, perplexity, remote-function, ...
	Status int    // HTTP status when there was one
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Source, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err with kind and source.
func NewServiceError(kind FailureKind, source string, status int, err error) *ServiceError {
	return &ServiceError{Kind: kind, Source: source, Status: status, Err: err}
}

// KindForStatus maps an HTTP status code onto a failure kind.
func KindForStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return FailureAuth
	case status == 408 || status == 504:
		return FailureNetwork
	default:
		return FailureUpstream
	}
}

// KindOf classifies err structurally.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureUpstream
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrNoValidKey) {
		return FailureAuth
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	return FailureUpstream
}

var (
	authMarkers = []string{
		"api key", "api_key", "apikey", "unauthorized", "unauthenticated",
		"permission denied", "invalid key", "401", "403",
	}
	networkMarkers = []string{
		"failed to fetch", "timed out", "timeout", "network", "aborted",
		"connection refused", "connection reset", "no such host", "deadline exceeded",
	}
)

// ClassifyMessage interprets a text-only error from a remote function that did
// not send an errorKind. Nothing else should match on message text.
func ClassifyMessage(msg string) FailureKind {
	m := strings.ToLower(msg)
	for _, marker := range authMarkers {
		if strings.Contains(m, marker) {
			return FailureAuth
		}
	}
	for _, marker := range networkMarkers {
		if strings.Contains(m, marker) {
			return FailureNetwork
		}
	}
	return FailureUpstream
}
