package iamerrors

import "errors"

// Is reports whether err is, or wraps, the given sentinel kind.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}

func IsNotFound(err error) bool       { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool       { return errors.Is(err, ErrConflict) }
func IsForbidden(err error) bool      { return errors.Is(err, ErrForbidden) }
func IsUnauthorized(err error) bool   { return errors.Is(err, ErrUnauthorized) }
func IsLocked(err error) bool         { return errors.Is(err, ErrLocked) }
func IsInvalidInput(err error) bool   { return errors.Is(err, ErrInvalidInput) }
func IsPolicyViolation(err error) bool { return errors.Is(err, ErrPolicyViolation) }
func IsResourceBusy(err error) bool   { return errors.Is(err, ErrResourceBusy) }
func IsInternal(err error) bool       { return errors.Is(err, ErrInternal) }
