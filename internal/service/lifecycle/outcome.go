package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle failure so callers can react to the category
// without parsing messages.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no category.
	KindUnknown Kind = iota
	// KindConnection covers authentication and network failures against the device.
	KindConnection
	// KindCommand covers rejected administrative commands (prerequisite steps).
	KindCommand
	// KindResolution covers unmatched version names and missing local files.
	KindResolution
	// KindHTTP covers unexpected answers from the release catalog.
	KindHTTP
	// KindUpload covers failed package uploads under the strict policy.
	KindUpload
	// KindTaskSubmission covers rejected install/uninstall task requests.
	KindTaskSubmission
	// KindVerification covers state checks that contradict the expected outcome.
	KindVerification
	// KindNotInstalled reports an uninstall attempted with no package present.
	KindNotInstalled
	// KindPending reports that polling ended while the asynchronous task may
	// still be running; distinct from a verified failure.
	KindPending
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindCommand:
		return "command"
	case KindResolution:
		return "resolution"
	case KindHTTP:
		return "http"
	case KindUpload:
		return "upload"
	case KindTaskSubmission:
		return "task submission"
	case KindVerification:
		return "verification"
	case KindNotInstalled:
		return "not installed"
	case KindPending:
		return "pending"
	case KindUnknown:
	}

	return "unknown"
}

// Error is the failure value returned by lifecycle operations. It carries the
// failure category, a human-readable message, and the wrapped cause when one
// exists, so no state is kept on the manager between calls.
type Error struct {
	// Kind is the failure category.
	Kind Kind
	// Message describes the failure in operator terms.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error renders the category, message, and cause.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a categorized failure without a cause.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// wrapError builds a categorized failure around a cause.
func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf extracts the failure category from an error chain,
// returning KindUnknown for uncategorized errors.
func KindOf(err error) Kind {
	var lifecycleErr *Error
	if errors.As(err, &lifecycleErr) {
		return lifecycleErr.Kind
	}

	return KindUnknown
}
