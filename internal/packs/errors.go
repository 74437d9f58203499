// ABOUTME: Error kinds for tool invocation
// ABOUTME: ToolError kinds become isError results; anything else aborts the call

package packs

import (
	"errors"
	"fmt"
)

// ErrNoIdentity indicates a tool call arrived without a verified caller.
// It is fatal to the call: it means the authentication layer is misconfigured.
var ErrNoIdentity = errors.New("missing user identity")

// ErrorKind classifies a recoverable tool failure.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// ToolError is a failure the calling agent can correct and retry. Message is
// returned to the caller verbatim as the text of an isError result.
type ToolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Invalid returns a validation ToolError.
func Invalid(format string, args ...any) error {
	return &ToolError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found ToolError.
func NotFound(format string, args ...any) error {
	return &ToolError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict ToolError.
func Conflict(format string, args ...any) error {
	return &ToolError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// AsToolError reports whether err is (or wraps) a ToolError.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
