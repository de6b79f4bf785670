// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
)

// ErrKind classifies an acquisition error. Every per-provider error is
// converted to a non-fatal outcome carrying one of these kinds; no
// provider error aborts a batch run.
type ErrKind string

const (
	KindValidation          ErrKind = "validation"
	KindNotFound            ErrKind = "not_found"
	KindNetwork             ErrKind = "network"
	KindTimeout             ErrKind = "timeout"
	KindVerification        ErrKind = "verification_mismatch"
	KindRateLimited         ErrKind = "rate_limited"
	KindAuthExpired         ErrKind = "auth_expired"
	KindUnsupportedProvider ErrKind = "unsupported_provider"
)

// Error is a classified acquisition error.
type Error struct {
	Kind ErrKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr builds a classified error around err.
func wrapErr(kind ErrKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification of err, mapping context errors to
// the timeout kind and everything unclassified to network.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindNetwork
}
