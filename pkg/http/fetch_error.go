package http

import (
	"errors"
	"fmt"
)

// FetchKind classifies an upstream failure.
type FetchKind string

const (
	// KindTransport covers network errors, timeouts and non-2xx statuses.
	KindTransport FetchKind = "transport"
	// KindDecode covers bodies that do not match the expected JSON shape.
	KindDecode FetchKind = "decode"
)

var (
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode failure")
)

// FetchError describes a failed upstream call.
type FetchError struct {
	Kind   FetchKind
	Method string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %s failure (status %d): %v", e.Method, e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %s failure: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets callers match on ErrTransport and ErrDecode.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// KindOf returns the failure kind of err, or "unknown" when it is not a FetchError.
func KindOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return "unknown"
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
