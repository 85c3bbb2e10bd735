package ubjson

import (
	"fmt"
)

// Marshaler is the interface implemented by types that write themselves
// through an Encoder.
type Marshaler interface {
	MarshalUBJSON(e *Encoder) error
}

// Unmarshaler is the interface implemented by types that build themselves from
// a Decoder. Implementations must consume exactly one value.
type Unmarshaler interface {
	UnmarshalUBJSON(d *Decoder) error
}

// Variant is implemented by tagged unions. A nil payload is a unit variant, a
// Tuple payload a tuple variant, a struct payload a record variant and anything
// else a newtype variant.
type Variant interface {
	UBJSONVariant() (name string, payload any)
}

// VariantType is a Variant that can also be decoded. VariantPayload returns a
// zero value of the payload type for name (nil for unit variants) and
// SetVariant stores the decoded payload.
type VariantType interface {
	Variant
	VariantPayload(name string) (any, error)
	SetVariant(name string, payload any) error
}

// Tuple is the payload of a tuple variant. When decoding, its elements act as
// prototypes for the element types.
type Tuple []any

// Visitor receives one self-described value from DecodeAny. Exactly one method
// is called per value. VisitString receives bytes that alias the input.
type Visitor interface {
	VisitNull() error
	VisitNoOp() error
	VisitBool(v bool) error
	// VisitInt receives every signed integer along with the marker it was read from.
	VisitInt(v int64, m Marker) error
	VisitUint8(v uint8) error
	// VisitFloat receives both float widths along with the marker they were read from.
	VisitFloat(v float64, m Marker) error
	VisitNumber(digits string) error
	VisitChar(c rune) error
	VisitString(b []byte) error
	VisitArray(a *ArrayAccess) error
	VisitObject(o *ObjectAccess) error
}

// DecodeAny reads whatever value comes next and reports it to v. Containers that
// v leaves partly unread are skipped to their end.
func (d *Decoder) DecodeAny(v Visitor) error {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > MaxDepth {
		return Errorf("nesting deeper than %d", MaxDepth)
	}

	m, err := d.takeOrReadMarker()
	if err != nil {
		return err
	}
	switch m {
	case Null:
		return v.VisitNull()
	case NoOp:
		return v.VisitNoOp()
	case True:
		return v.VisitBool(true)
	case False:
		return v.VisitBool(false)
	case Int8, Int16, Int32, Int64:
		n, err := d.readInt(m)
		if err != nil {
			return err
		}
		return v.VisitInt(n, m)
	case Uint8:
		n, err := d.readUint(1)
		if err != nil {
			return err
		}
		return v.VisitUint8(uint8(n))
	case Float32, Float64:
		d.setHint(m)
		f, err := d.DecodeFloat64()
		if err != nil {
			return err
		}
		return v.VisitFloat(f, m)
	case Number:
		digits, err := d.readNumber()
		if err != nil {
			return err
		}
		return v.VisitNumber(string(digits))
	case Char, String:
		d.setHint(m)
		if m == Char {
			c, err := d.DecodeChar()
			if err != nil {
				return err
			}
			return v.VisitChar(c)
		}
		b, err := d.DecodeStringBytes()
		if err != nil {
			return err
		}
		return v.VisitString(b)
	case ArrayStart:
		a, err := d.arrayAfterStart()
		if err != nil {
			return err
		}
		if err := v.VisitArray(a); err != nil {
			return err
		}
		return a.Finish()
	case ObjectStart:
		o, err := d.objectAfterStart()
		if err != nil {
			return err
		}
		if err := v.VisitObject(o); err != nil {
			return err
		}
		return o.Finish()
	default:
		return fmt.Errorf("%w: %q cannot start a value", ErrInvalidMarker, m)
	}
}

// Skip consumes the next value without building anything.
func (d *Decoder) Skip() error {
	return d.DecodeAny(skipVisitor{})
}

type skipVisitor struct{}

func (skipVisitor) VisitNull() error                  { return nil }
func (skipVisitor) VisitNoOp() error                  { return nil }
func (skipVisitor) VisitBool(bool) error              { return nil }
func (skipVisitor) VisitInt(int64, Marker) error      { return nil }
func (skipVisitor) VisitUint8(uint8) error            { return nil }
func (skipVisitor) VisitFloat(float64, Marker) error  { return nil }
func (skipVisitor) VisitNumber(string) error          { return nil }
func (skipVisitor) VisitChar(rune) error              { return nil }
func (skipVisitor) VisitString([]byte) error          { return nil }
func (skipVisitor) VisitArray(a *ArrayAccess) error   { return a.Finish() }
func (skipVisitor) VisitObject(o *ObjectAccess) error { return o.Finish() }
