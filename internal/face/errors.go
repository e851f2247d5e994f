package face

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an image, an extraction or a comparison failed.
// The kinds are errors themselves so callers can match them with errors.Is.
type FailureKind string

const (
	InvalidImageFormat FailureKind = "InvalidImageFormat"
	ImageTooSmall      FailureKind = "ImageTooSmall"
	NoFaceDetected     FailureKind = "NoFaceDetected"
	ModelUnavailable   FailureKind = "ModelUnavailable"
	ExtractionError    FailureKind = "ExtractionError"
	DimensionMismatch  FailureKind = "DimensionMismatch"
	DegenerateVector   FailureKind = "DegenerateVector"
)

func (k FailureKind) Error() string {
	return string(k)
}

// Error carries a FailureKind together with the operation and the underlying cause.
type Error struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fail builds an *Error for op. cause may be nil.
func Fail(kind FailureKind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the FailureKind carried by err. Errors that carry no kind
// are reported as ExtractionError.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k FailureKind
	if errors.As(err, &k) {
		return k
	}
	return ExtractionError
}

// IsInputError reports whether err was caused by the submitted image itself
// rather than by the model runtime.
func IsInputError(err error) bool {
	switch KindOf(err) {
	case InvalidImageFormat, ImageTooSmall:
		return true
	}
	return false
}
