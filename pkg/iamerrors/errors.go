// Package iamerrors defines the semantic error taxonomy shared by every
// component of the authorization engine. Callers classify failures with
// errors.Is against the sentinel values here rather than inspecting
// component-specific error types.
package iamerrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the entity id is unknown in the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness violation (duplicate ak, duplicate rel,
	// sibling saturation, role-kind mismatch).
	ErrConflict = errors.New("conflict")
	// ErrForbidden means scope or role prerequisites are unmet.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized means an invalid cert or an expired/unknown token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLocked means the cert is within its lockout window.
	ErrLocked = errors.New("locked")
	// ErrInvalidInput means the input fails ak_rule/sk_rule or structural
	// validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPolicyViolation means the operation would violate a standing policy
	// (delete a protected system role, delete the last admin, ...).
	ErrPolicyViolation = errors.New("policy violation")
	// ErrResourceBusy means lock acquisition timed out.
	ErrResourceBusy = errors.New("resource busy")
	// ErrInternal means a store/cache failure; idempotent callers may retry.
	ErrInternal = errors.New("internal error")
)

// Wrap attaches context to a sentinel error while keeping it matchable with
// errors.Is(err, sentinel).
func Wrap(sentinel error, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &wrapped{sentinel: sentinel, msg: msg}
}

type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.sentinel.Error() }
func (w *wrapped) Unwrap() error { return w.sentinel }
