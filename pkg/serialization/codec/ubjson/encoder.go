package ubjson

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// Mode tells the Encoder whether the next write is an object key or a value.
type Mode uint8

const (
	ModeValue Mode = iota
	ModeKey
)

// UnknownLength makes BeginArray and BeginObject emit a delimited container.
const UnknownLength = -1

// Encoder writes marker-tagged values to an io.Writer. It is driven by one Write*
// or Begin* call per value; the reflection binding in encode.go is one such driver.
//
// Object keys are written in ModeKey: only strings and chars are accepted there and
// they are written without their own String marker.
type Encoder struct {
	w       io.Writer
	mode    Mode
	scratch [9]byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Mode() Mode {
	return e.mode
}

// withMode runs fn with the encoder switched to m and restores the previous mode
// whatever fn returns.
func (e *Encoder) withMode(m Mode, fn func() error) error {
	prev := e.mode
	e.mode = m
	defer func() { e.mode = prev }()
	return fn()
}

func (e *Encoder) valueOnly() error {
	if e.mode == ModeKey {
		return ErrInvalidKey
	}
	return nil
}

func (e *Encoder) raw(b []byte) error {
	if _, err := e.w.Write(b); err != nil {
		return &IOError{Err: err}
	}
	return nil
}

func (e *Encoder) mark(m Marker) error {
	e.scratch[0] = byte(m)
	return e.raw(e.scratch[:1])
}

// fixed writes m followed by the low size bytes of payload in big endian order.
func (e *Encoder) fixed(m Marker, payload uint64, size int) error {
	e.scratch[0] = byte(m)
	switch size {
	case 1:
		e.scratch[1] = byte(payload)
	case 2:
		binary.BigEndian.PutUint16(e.scratch[1:], uint16(payload))
	case 4:
		binary.BigEndian.PutUint32(e.scratch[1:], uint32(payload))
	case 8:
		binary.BigEndian.PutUint64(e.scratch[1:], payload)
	}
	return e.raw(e.scratch[:1+size])
}

// writeLen always uses the 64-bit integer marker.
func (e *Encoder) writeLen(n int) error {
	return e.fixed(Int64, uint64(int64(n)), 8)
}

func (e *Encoder) WriteBool(v bool) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	if v {
		return e.mark(True)
	}
	return e.mark(False)
}

func (e *Encoder) WriteInt8(v int8) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Int8, uint64(uint8(v)), 1)
}

func (e *Encoder) WriteInt16(v int16) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Int16, uint64(uint16(v)), 2)
}

func (e *Encoder) WriteInt32(v int32) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Int32, uint64(uint32(v)), 4)
}

func (e *Encoder) WriteInt64(v int64) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Int64, uint64(v), 8)
}

func (e *Encoder) WriteUint8(v uint8) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Uint8, uint64(v), 1)
}

// WriteUint16 widens to the 32-bit signed marker.
func (e *Encoder) WriteUint16(v uint16) error {
	return e.WriteInt32(int32(v))
}

// WriteUint32 widens to the 64-bit signed marker.
func (e *Encoder) WriteUint32(v uint32) error {
	return e.WriteInt64(int64(v))
}

// WriteUint64 has no fixed width marker and is written as a decimal Number.
func (e *Encoder) WriteUint64(v uint64) error {
	return e.WriteNumber(strconv.FormatUint(v, 10))
}

// WriteNumber writes digits under the Number marker. The digits are not validated
// here; DecodeNumber rejects anything that is not a decimal number.
func (e *Encoder) WriteNumber(digits string) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	if err := e.mark(Number); err != nil {
		return err
	}
	if err := e.writeLen(len(digits)); err != nil {
		return err
	}
	return e.raw([]byte(digits))
}

func (e *Encoder) WriteFloat32(v float32) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Float32, uint64(math.Float32bits(v)), 4)
}

func (e *Encoder) WriteFloat64(v float64) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.fixed(Float64, math.Float64bits(v), 8)
}

// WriteString writes S, the length and the bytes of s. In ModeKey the S marker is
// omitted because the grammar already places a string there.
func (e *Encoder) WriteString(s string) error {
	if e.mode == ModeValue {
		if err := e.mark(String); err != nil {
			return err
		}
	}
	if err := e.writeLen(len(s)); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		return &IOError{Err: err}
	}
	return nil
}

// WriteChar writes r as a one rune string.
func (e *Encoder) WriteChar(r rune) error {
	return e.WriteString(string(r))
}

// WriteASCIIChar writes c under the Char marker. Keys have no char form, so in
// ModeKey c is written as a one byte string.
func (e *Encoder) WriteASCIIChar(c byte) error {
	if c >= 0x80 {
		return ErrInvalidString
	}
	if e.mode == ModeKey {
		return e.WriteString(string(rune(c)))
	}
	return e.fixed(Char, uint64(c), 1)
}

// WriteBytes writes b as a counted array of Uint8 values.
func (e *Encoder) WriteBytes(b []byte) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	if err := e.mark(ArrayStart); err != nil {
		return err
	}
	if err := e.mark(Length); err != nil {
		return err
	}
	if err := e.writeLen(len(b)); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	buf := make([]byte, 0, 2*len(b))
	for _, c := range b {
		buf = append(buf, byte(Uint8), c)
	}
	return e.raw(buf)
}

func (e *Encoder) WriteNone() error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.mark(Null)
}

func (e *Encoder) WriteUnit() error {
	return e.WriteNone()
}

// WriteSome writes a present optional, which is just the inner value.
func (e *Encoder) WriteSome(fn func(*Encoder) error) error {
	return fn(e)
}

func (e *Encoder) WriteNoOp() error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	return e.mark(NoOp)
}

// ArrayEncoder streams the elements of an array started by BeginArray.
type ArrayEncoder struct {
	e       *Encoder
	counted bool
	want    int
	written int
}

// BeginArray starts an array. A non-negative n declares the element count and
// suppresses the closing delimiter; UnknownLength produces a delimited array.
func (e *Encoder) BeginArray(n int) (*ArrayEncoder, error) {
	if err := e.valueOnly(); err != nil {
		return nil, err
	}
	if err := e.mark(ArrayStart); err != nil {
		return nil, err
	}
	if err := e.header(n); err != nil {
		return nil, err
	}
	return &ArrayEncoder{e: e, counted: n >= 0, want: n}, nil
}

func (e *Encoder) header(n int) error {
	if n < 0 {
		return nil
	}
	if err := e.mark(Length); err != nil {
		return err
	}
	return e.writeLen(n)
}

func (a *ArrayEncoder) Element(fn func(*Encoder) error) error {
	a.written++
	return a.e.withMode(ModeValue, func() error { return fn(a.e) })
}

func (a *ArrayEncoder) End() error {
	if a.counted {
		if a.written != a.want {
			return Errorf("array declared %d elements, wrote %d", a.want, a.written)
		}
		return nil
	}
	return a.e.mark(ArrayEnd)
}

// ObjectEncoder streams the entries of an object started by BeginObject.
type ObjectEncoder struct {
	e       *Encoder
	counted bool
	want    int
	written int
}

// BeginObject starts an object, framed the same way as BeginArray.
func (e *Encoder) BeginObject(n int) (*ObjectEncoder, error) {
	if err := e.valueOnly(); err != nil {
		return nil, err
	}
	if err := e.mark(ObjectStart); err != nil {
		return nil, err
	}
	if err := e.header(n); err != nil {
		return nil, err
	}
	return &ObjectEncoder{e: e, counted: n >= 0, want: n}, nil
}

// Key runs fn in ModeKey. Anything but a string or char written by fn fails with ErrInvalidKey.
func (o *ObjectEncoder) Key(fn func(*Encoder) error) error {
	o.written++
	return o.e.withMode(ModeKey, func() error { return fn(o.e) })
}

func (o *ObjectEncoder) Value(fn func(*Encoder) error) error {
	return o.e.withMode(ModeValue, func() error { return fn(o.e) })
}

// Field writes a string key followed by the value produced by fn.
func (o *ObjectEncoder) Field(name string, fn func(*Encoder) error) error {
	if err := o.Key(func(e *Encoder) error { return e.WriteString(name) }); err != nil {
		return err
	}
	return o.Value(fn)
}

func (o *ObjectEncoder) End() error {
	if o.counted {
		if o.written != o.want {
			return Errorf("object declared %d entries, wrote %d", o.want, o.written)
		}
		return nil
	}
	return o.e.mark(ObjectEnd)
}

// WriteUnitVariant writes a payload-less variant as its bare name.
func (e *Encoder) WriteUnitVariant(name string) error {
	return e.WriteString(name)
}

// variantHeader opens the single entry object wrapping a variant payload and
// writes the variant name as its key.
func (e *Encoder) variantHeader(name string) error {
	if err := e.valueOnly(); err != nil {
		return err
	}
	if err := e.mark(ObjectStart); err != nil {
		return err
	}
	if err := e.header(1); err != nil {
		return err
	}
	return e.withMode(ModeKey, func() error { return e.WriteString(name) })
}

func (e *Encoder) WriteNewtypeVariant(name string, fn func(*Encoder) error) error {
	if err := e.variantHeader(name); err != nil {
		return err
	}
	return e.withMode(ModeValue, func() error { return fn(e) })
}

// BeginTupleVariant writes the variant wrapper and opens a counted array of n fields.
func (e *Encoder) BeginTupleVariant(name string, n int) (*ArrayEncoder, error) {
	if n < 0 {
		return nil, Errorf("tuple variant %q needs a field count", name)
	}
	if err := e.variantHeader(name); err != nil {
		return nil, err
	}
	return e.BeginArray(n)
}

// BeginStructVariant writes the variant wrapper and opens a counted object of n fields.
func (e *Encoder) BeginStructVariant(name string, n int) (*ObjectEncoder, error) {
	if n < 0 {
		return nil, Errorf("struct variant %q needs a field count", name)
	}
	if err := e.variantHeader(name); err != nil {
		return nil, err
	}
	return e.BeginObject(n)
}
