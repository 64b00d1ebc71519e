package authinfo

import (
	"errors"
	"fmt"
)

var (
	// ErrLocalTime is returned when a wall-clock local time is supplied for
	// an expiration or a scheme last-used timestamp. All times in the model
	// are UTC; location-free times are normalized, local ones are rejected.
	ErrLocalTime = errors.New("time must be UTC, not local")
	// ErrUserNameMismatch is returned when the user name is empty for a
	// non-anonymous user id, or non-empty for user id 0.
	ErrUserNameMismatch = errors.New("user name is empty if and only if user id is 0")
	// ErrSchemeNameEmpty is returned when a scheme name is empty or only
	// whitespace.
	ErrSchemeNameEmpty = errors.New("scheme name must not be empty or whitespace")
	// ErrImpersonateAnonymous is returned by Impersonate when the actual
	// user is the anonymous: impersonation from "nobody" is meaningless.
	ErrImpersonateAnonymous = errors.New("cannot impersonate from the anonymous user")
	// ErrInvalidData is the sentinel matched by all codec format errors.
	// Use errors.Is(err, ErrInvalidData) to detect any decode failure.
	ErrInvalidData = errors.New("invalid data")
	// ErrClaimsTypeInvalid is returned by NewTypeSystem when the configured
	// claims authentication type tag is blank.
	ErrClaimsTypeInvalid = errors.New("claims authentication type must not be blank")
)

// FormatError is the decode-only error raised by the JSON and claims codecs.
// It carries the offending fragment for diagnostics and matches
// [ErrInvalidData] through errors.Is.
type FormatError struct {
	// Fragment is the wire fragment that failed to decode.
	Fragment string
	// Err is the underlying cause, if any.
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid data: %v: %s", e.Err, e.Fragment)
	}
	return fmt.Sprintf("invalid data: %s", e.Fragment)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is reports ErrInvalidData so callers can match the sentinel without
// knowing the concrete type.
func (e *FormatError) Is(target error) bool { return target == ErrInvalidData }

func formatErr(fragment string, cause error) error {
	return &FormatError{Fragment: fragment, Err: cause}
}
