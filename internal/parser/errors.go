package parser

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedVendor = errors.New("unsupported vendor")
	ErrConnection        = errors.New("upstream connection failed")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UnsupportedVendorError is returned when no parser matches a URL.
type UnsupportedVendorError struct {
	URL string
}

func (e *UnsupportedVendorError) Error() string {
	return fmt.Sprintf("unsupported vendor: %s", e.URL)
}

func (e *UnsupportedVendorError) Is(target error) bool {
	return target == ErrUnsupportedVendor
}

// ConnectionError reports a failed or non-2xx outbound call. URL is always the
// activity URL the caller asked for, not the derived endpoint. StatusCode is 0
// when no response was received.
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch activity %s: upstream status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("failed to fetch activity %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to fetch activity %s", e.URL)
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// MalformedResponseError means the vendor answered but not in the shape we parse.
type MalformedResponseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response for %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response for %s: %s", e.URL, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
