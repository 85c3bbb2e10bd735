package ubjson

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEOF            = errors.New("end of input")
	ErrInvalidMarker  = errors.New("invalid marker")
	ErrInvalidString  = errors.New("invalid string")
	ErrInvalidKey     = errors.New("invalid key")
	ErrExpectedLength = errors.New("expected length")
	ErrTrailingData   = errors.New("trailing data")
	// ErrExpected matches every *ExpectedError through errors.Is.
	ErrExpected = errors.New("unexpected marker")
	// ErrOutOfRange is returned when a wire integer does not fit the requested target.
	ErrOutOfRange      = errors.New("integer out of range")
	ErrUnsupportedType = errors.New("unsupported type")

	ErrInvalidPointer = "%w: destination must be a non-nil pointer, got %T"
	ErrNegativeLength = "%w: negative length %d"
	ErrVariantEntries = "%w: variant object with %d entries"
	ErrUnknownVariant = "unknown variant %q"
	ErrEncodingField  = "encoding struct field '%s': %w"
	ErrDecodingField  = "decoding struct field '%s': %w"
	ErrDecodingMapKey = "decoding map key: %w"
	ErrDecodingMapVal = "decoding map value for key %q: %w"
	ErrDecodingElem   = "decoding element %d: %w"
	ErrUnsupported    = "%w: %v"
)

// ExpectedError reports that a value's marker was none of the markers acceptable
// for the requested target. Markers lists every marker that would have been accepted.
type ExpectedError struct {
	Markers []Marker
}

func expected(markers ...Marker) error {
	return &ExpectedError{Markers: markers}
}

func (e *ExpectedError) Error() string {
	var sb strings.Builder
	sb.WriteString("expected markers:")
	for _, m := range e.Markers {
		sb.WriteByte(' ')
		sb.WriteByte(byte(m))
	}
	return sb.String()
}

func (e *ExpectedError) Is(target error) bool {
	return target == ErrExpected
}

// CustomError carries a construction error raised by a Marshaler, Unmarshaler or
// the reflection binding.
type CustomError struct {
	Msg string
	// Err is the error wrapped with %w, if any.
	Err error
}

func (e *CustomError) Error() string { return e.Msg }

func (e *CustomError) Unwrap() error { return e.Err }

// Errorf builds a CustomError. A %w verb keeps the wrapped error reachable
// through errors.Is and errors.As.
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &CustomError{Msg: err.Error(), Err: errors.Unwrap(err)}
}

// IOError wraps a failure of the underlying writer.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "io: " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }
