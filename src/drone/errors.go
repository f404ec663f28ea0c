package drone

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrBuildNotFound = errors.New("build not found")

	// ErrExhausted is returned by Paginator.Next once the backend returns an empty page.
	ErrExhausted = errors.New("build list exhausted")

	// ErrContractViolation marks a caller bypassing a capability check,
	// e.g. reading an absent step timestamp. It is never recoverable.
	ErrContractViolation = errors.New("contract violation")
)

// DecodeError reports a payload that does not have the shape of a Drone record.
type DecodeError struct {
	Kind  string // "build", "stage" or "step"
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("decode %s: field %q: %v", e.Kind, e.Field, e.Err)
	case e.Field != "":
		return fmt.Sprintf("decode %s: missing required field %q", e.Kind, e.Field)
	default:
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Err)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that both Drone tokens are valid and can read the repository.\n  - Gen1: Set DRONE1_TOKEN\n  - Gen2: Set DRONE2_TOKEN",
			Err:     err,
		}
	}

	if errors.Is(err, ErrBuildNotFound) {
		return &UserError{
			Message: "Build or repository not found",
			Hint:    "Check DRONE_REPO and that both Drone servers have the repository activated.",
			Err:     err,
		}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return &UserError{
			Message: "Unexpected response from Drone",
			Hint:    "The server returned a payload this tool cannot read. Check DRONE1_URL and DRONE2_URL point at Drone API servers.",
			Err:     err,
		}
	}

	return err
}
