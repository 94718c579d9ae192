package connection

import (
	"errors"
	"fmt"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrMissingConfig     = errors.New("connection not configured")
	ErrAuthentication    = errors.New("credential rejected")
	ErrNetwork           = errors.New("backend unreachable")
	ErrUnknownConnection = errors.New("unexpected probe failure")
	ErrHandleClosed      = errors.New("connection handle closed")
)

// MissingConfigError means the segment has no usable connection config. It
// is the only connection failure that blocks a switch.
type MissingConfigError struct {
	Segment catalog.SegmentID
	// Err is set when the config exists but could not be read.
	Err error
}

func (e *MissingConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("segment %q has no usable connection config: %v", e.Segment, e.Err)
	}
	return fmt.Sprintf("segment %q has no connection config", e.Segment)
}

func (e *MissingConfigError) Unwrap() error        { return e.Err }
func (e *MissingConfigError) Is(target error) bool { return target == ErrMissingConfig }

// AuthenticationError is a probe answered with 401 or 403.
type AuthenticationError struct {
	Segment catalog.SegmentID
	Status  int
	Detail  string
}

func (e *AuthenticationError) Error() string {
	return withDetail(fmt.Sprintf("segment %q: credential rejected (HTTP %d)", e.Segment, e.Status), e.Detail)
}

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// NetworkError is a probe that never got a usable answer: transport
// failure, timeout, or a gateway status.
type NetworkError struct {
	Segment catalog.SegmentID
	Status  int
	Detail  string
	Err     error
}

func (e *NetworkError) Error() string {
	msg := fmt.Sprintf("segment %q: backend unreachable", e.Segment)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return withDetail(msg, e.Detail)
}

func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// UnknownConnectionError is any other probe failure.
type UnknownConnectionError struct {
	Segment catalog.SegmentID
	Status  int
	Detail  string
	Err     error
}

func (e *UnknownConnectionError) Error() string {
	msg := fmt.Sprintf("segment %q: probe failed", e.Segment)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return withDetail(msg, e.Detail)
}

func (e *UnknownConnectionError) Unwrap() error        { return e.Err }
func (e *UnknownConnectionError) Is(target error) bool { return target == ErrUnknownConnection }

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + ": " + detail
}
