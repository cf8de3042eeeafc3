package api

import (
	"errors"
	"fmt"
)

// ConnectivityError marks a network-level failure: the Remote Authority was
// unreachable or the call exceeded its bound. Retryable; callers fall back
// to optimistic local apply.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("remote unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RejectionError marks an explicit refusal by the Remote Authority
// (validation, auth, not-found). Not retryable in place; carries the
// server-provided message.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// IsConnectivity reports whether err is a network-level failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsRejection reports whether err is an explicit remote refusal.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
