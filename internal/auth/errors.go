// Package auth runs remote operations that need a bearer credential. The
// Executor tries an operation with the current credential, and when the
// remote side rejects it, silently re-establishes a credential once and
// retries once. Everything else (network errors, validation errors, 5xx) is
// the caller's problem and passes through untouched.
package auth

import (
	"errors"
)

// Terminal errors produced by the Executor itself. Operation failures are
// never wrapped in these; they are returned as the operation produced them.
var (
	// ErrNotAuthenticated means no credential is present. Never retried.
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrSessionExpired means an operation was rejected and the silent
	// refresh failed. The credential store has been cleared.
	ErrSessionExpired = errors.New("auth: session expired")

	// ErrUnauthorized is the signal remote operations wrap when the remote
	// system rejects the presented credential (HTTP 401).
	ErrUnauthorized = errors.New("auth: credential rejected")
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindOther covers every failure unrelated to the credential.
	KindOther Kind = iota
	// KindAuthorization means the remote system rejected the credential.
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	default:
		return "other"
	}
}

// authorizationFailure lets error types outside this package report their
// own classification without wrapping ErrUnauthorized.
type authorizationFailure interface {
	AuthorizationFailure() bool
}

// Classify reports whether err is an authorization failure. It relies on the
// error chain only (errors.Is / errors.As), never on message text.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	if errors.Is(err, ErrUnauthorized) {
		return KindAuthorization
	}

	var af authorizationFailure
	if errors.As(err, &af) && af.AuthorizationFailure() {
		return KindAuthorization
	}

	return KindOther
}
