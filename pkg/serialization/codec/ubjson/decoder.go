package ubjson

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// MaxDepth bounds the container nesting DecodeAny and Skip will follow.
const MaxDepth = 1024

// maxZeroWidthElements bounds typed arrays whose elements occupy no bytes ($Z, $T, ...).
const maxZeroWidthElements = 1 << 20

// Decoder reads marker-tagged values from an in-memory buffer.
//
// Besides the cursor it keeps one pending type hint, set by the container
// access objects right before an element is decoded. A hinted read skips the
// marker byte and trusts the hint instead.
//
// Slices returned by DecodeStringBytes, and by DecodeBytes for typed arrays or
// when WithNoCopy is set, alias the input buffer. The buffer must outlive them and
// must not be modified while they are in use.
type Decoder struct {
	data   []byte
	pos    int
	hint   Marker
	hinted bool
	depth  int

	redundantClose bool
	noCopy         bool
}

type DecoderOption func(*Decoder)

// WithRedundantClose tolerates producers that declare a count and still close
// the container with its end marker.
func WithRedundantClose() DecoderOption {
	return func(d *Decoder) { d.redundantClose = true }
}

// WithNoCopy makes byte slices produced by the reflection binding alias the input.
func WithNoCopy() DecoderOption {
	return func(d *Decoder) { d.noCopy = true }
}

func NewDecoder(data []byte, opts ...DecoderOption) *Decoder {
	d := &Decoder{data: data}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offset is the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.pos
}

// Remaining is the number of bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

func (d *Decoder) peekByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, ErrEOF
	}
	return d.data[d.pos], nil
}

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, ErrEOF
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

// readBytes returns the next n bytes without copying them.
func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, ErrEOF
	}
	b := d.data[d.pos : d.pos+n : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) peekMarker() (Marker, error) {
	b, err := d.peekByte()
	if err != nil {
		return 0, err
	}
	return ParseMarker(b)
}

func (d *Decoder) readMarker() (Marker, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return ParseMarker(b)
}

func (d *Decoder) setHint(m Marker) {
	d.hint = m
	d.hinted = true
}

func (d *Decoder) clearHint() {
	d.hinted = false
}

// takeOrReadMarker consumes the pending hint if there is one and reads a marker otherwise.
func (d *Decoder) takeOrReadMarker() (Marker, error) {
	if d.hinted {
		d.hinted = false
		return d.hint, nil
	}
	return d.readMarker()
}

// readUint reads a size byte big endian payload.
func (d *Decoder) readUint(size int) (uint64, error) {
	b, err := d.readBytes(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	default:
		return binary.BigEndian.Uint64(b), nil
	}
}

// readInt reads the payload of an integer marker that has already been consumed
// and sign-extends it.
func (d *Decoder) readInt(m Marker) (int64, error) {
	v, err := d.readUint(m.Size())
	if err != nil {
		return 0, err
	}
	switch m {
	case Int8:
		return int64(int8(v)), nil
	case Uint8:
		return int64(uint8(v)), nil
	case Int16:
		return int64(int16(v)), nil
	case Int32:
		return int64(int32(v)), nil
	default:
		return int64(v), nil
	}
}

// readLen reads a length: one signed integer marker and its payload.
func (d *Decoder) readLen() (int, error) {
	m, err := d.readMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Int8, Int16, Int32, Int64:
	default:
		return 0, ErrExpectedLength
	}
	n, err := d.readInt(m)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf(ErrNegativeLength, ErrExpectedLength, n)
	}
	if int64(int(n)) != n {
		return 0, fmt.Errorf("%w: length %d", ErrOutOfRange, n)
	}
	return int(n), nil
}

// readStr reads a length-prefixed UTF-8 payload without copying it.
func (d *Decoder) readStr() ([]byte, error) {
	n, err := d.readLen()
	if err != nil {
		return nil, err
	}
	b, err := d.readBytes(n)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, ErrInvalidString
	}
	return b, nil
}

func (d *Decoder) DecodeBool() (bool, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return false, err
	}
	switch m {
	case True:
		return true, nil
	case False:
		return false, nil
	default:
		return false, expected(True, False)
	}
}

func (d *Decoder) DecodeInt8() (int8, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	if m != Int8 {
		return 0, expected(Int8)
	}
	v, err := d.readInt(m)
	return int8(v), err
}

func (d *Decoder) DecodeInt16() (int16, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Int16, Int8:
	default:
		return 0, expected(Int16, Int8)
	}
	v, err := d.readInt(m)
	return int16(v), err
}

func (d *Decoder) DecodeInt32() (int32, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Int32, Int16, Int8:
	default:
		return 0, expected(Int32, Int16, Int8)
	}
	v, err := d.readInt(m)
	return int32(v), err
}

func (d *Decoder) DecodeInt64() (int64, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Int64, Int32, Int16, Int8:
	default:
		return 0, expected(Int64, Int32, Int16, Int8)
	}
	return d.readInt(m)
}

func (d *Decoder) DecodeUint8() (uint8, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	if m != Uint8 {
		return 0, expected(Uint8)
	}
	v, err := d.readUint(1)
	return uint8(v), err
}

// DecodeUint16 accepts Uint8 and the signed markers up to the 32-bit one that
// WriteUint16 produces, as long as the value fits.
func (d *Decoder) DecodeUint16() (uint16, error) {
	v, err := d.decodeUnsigned(math.MaxUint16, Uint8, Int8, Int16, Int32)
	return uint16(v), err
}

func (d *Decoder) DecodeUint32() (uint32, error) {
	v, err := d.decodeUnsigned(math.MaxUint32, Uint8, Int8, Int16, Int32, Int64)
	return uint32(v), err
}

// DecodeUint64 additionally accepts the decimal Number form written by WriteUint64.
func (d *Decoder) DecodeUint64() (uint64, error) {
	return d.decodeUnsigned(math.MaxUint64, Uint8, Int8, Int16, Int32, Int64, Number)
}

func (d *Decoder) decodeUnsigned(max uint64, accepted ...Marker) (uint64, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	if !containsMarker(accepted, m) {
		return 0, expected(accepted...)
	}
	if m == Number {
		digits, err := d.readNumber()
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseUint(string(digits), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrOutOfRange, digits)
		}
		return v, nil
	}
	v, err := d.readInt(m)
	if err != nil {
		return 0, err
	}
	if v < 0 || uint64(v) > max {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return uint64(v), nil
}

func containsMarker(ms []Marker, m Marker) bool {
	for _, c := range ms {
		if c == m {
			return true
		}
	}
	return false
}

func (d *Decoder) DecodeFloat32() (float32, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	if m != Float32 {
		return 0, expected(Float32)
	}
	v, err := d.readUint(4)
	return math.Float32frombits(uint32(v)), err
}

func (d *Decoder) DecodeFloat64() (float64, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Float64:
		v, err := d.readUint(8)
		return math.Float64frombits(v), err
	case Float32:
		v, err := d.readUint(4)
		return float64(math.Float32frombits(uint32(v))), err
	default:
		return 0, expected(Float64, Float32)
	}
}

// DecodeNumber returns the digits of a Number value.
func (d *Decoder) DecodeNumber() (string, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return "", err
	}
	if m != Number {
		return "", expected(Number)
	}
	digits, err := d.readNumber()
	return string(digits), err
}

func (d *Decoder) readNumber() ([]byte, error) {
	n, err := d.readLen()
	if err != nil {
		return nil, err
	}
	b, err := d.readBytes(n)
	if err != nil {
		return nil, err
	}
	if !validNumber(b) {
		return nil, ErrInvalidString
	}
	return b, nil
}

// validNumber accepts the JSON number grammar.
func validNumber(b []byte) bool {
	i := 0
	if i < len(b) && b[i] == '-' {
		i++
	}
	start := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == start {
		return false
	}
	if i < len(b) && b[i] == '.' {
		i++
		frac := i
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
		if i == frac {
			return false
		}
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		exp := i
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
		if i == exp {
			return false
		}
	}
	return i == len(b)
}

// DecodeChar accepts a Char or a String holding exactly one ASCII byte.
func (d *Decoder) DecodeChar() (rune, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return 0, err
	}
	switch m {
	case Char:
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		if b >= utf8.RuneSelf {
			return 0, ErrInvalidString
		}
		return rune(b), nil
	case String:
		s, err := d.readStr()
		if err != nil {
			return 0, err
		}
		if len(s) != 1 || s[0] >= utf8.RuneSelf {
			return 0, ErrInvalidString
		}
		return rune(s[0]), nil
	default:
		return 0, expected(Char, String)
	}
}

// DecodeStringBytes returns the UTF-8 bytes of a String or Char without copying.
func (d *Decoder) DecodeStringBytes() ([]byte, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return nil, err
	}
	switch m {
	case String:
		return d.readStr()
	case Char:
		b, err := d.readBytes(1)
		if err != nil {
			return nil, err
		}
		if b[0] >= utf8.RuneSelf {
			return nil, ErrInvalidString
		}
		return b, nil
	default:
		return nil, expected(String, Char)
	}
}

func (d *Decoder) DecodeString() (string, error) {
	b, err := d.DecodeStringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeBytes reads a byte sequence. Typed arrays ([$U# or [$i#) yield one span
// aliasing the input; counted arrays of Uint8 values are gathered into a new slice.
// Delimited arrays carry no length and are rejected with ErrExpectedLength.
func (d *Decoder) DecodeBytes() ([]byte, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return nil, err
	}
	if m != ArrayStart {
		return nil, expected(ArrayStart)
	}
	f, err := d.readFraming()
	if err != nil {
		return nil, err
	}
	if !f.counted {
		return nil, fmt.Errorf("%w: byte sequence without a declared length", ErrExpectedLength)
	}
	if f.typed {
		if f.ofType != Uint8 && f.ofType != Int8 {
			return nil, expected(Uint8, Int8)
		}
		b, err := d.readBytes(f.length)
		if err != nil {
			return nil, err
		}
		d.consumeRedundant(ArrayEnd)
		return b, nil
	}
	if f.length > d.Remaining()/2 {
		return nil, ErrEOF
	}
	out := make([]byte, f.length)
	for i := range out {
		m, err := d.readMarker()
		if err != nil {
			return nil, err
		}
		if m != Uint8 {
			return nil, expected(Uint8)
		}
		if out[i], err = d.readByte(); err != nil {
			return nil, err
		}
	}
	d.consumeRedundant(ArrayEnd)
	return out, nil
}

// DecodeOption reports absent when the next value is Null, consuming it, and
// otherwise runs some on the present value.
func (d *Decoder) DecodeOption(some func(*Decoder) error) (bool, error) {
	if d.hinted {
		if d.hint == Null {
			d.clearHint()
			return false, nil
		}
		return true, some(d)
	}
	m, err := d.peekMarker()
	if err != nil {
		return false, err
	}
	if m == Null {
		d.pos++
		return false, nil
	}
	return true, some(d)
}

func (d *Decoder) DecodeUnit() error {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return err
	}
	if m != Null {
		return expected(Null)
	}
	return nil
}

// framing is what follows a container start marker.
type framing struct {
	length  int
	counted bool
	ofType  Marker
	typed   bool
}

// readFraming peeks the byte after a container start and consumes the
// of-type and length headers if present.
func (d *Decoder) readFraming() (framing, error) {
	b, err := d.peekByte()
	if err != nil {
		return framing{}, err
	}
	switch Marker(b) {
	case OfType:
		d.pos++
		of, err := d.readMarker()
		if err != nil {
			return framing{}, err
		}
		switch of {
		case ArrayEnd, ObjectEnd, Length, OfType, NoOp:
			return framing{}, ErrInvalidMarker
		}
		lm, err := d.readMarker()
		if err != nil {
			return framing{}, err
		}
		if lm != Length {
			return framing{}, expected(Length)
		}
		n, err := d.readLen()
		if err != nil {
			return framing{}, err
		}
		return framing{length: n, counted: true, ofType: of, typed: true}, nil
	case Length:
		d.pos++
		n, err := d.readLen()
		if err != nil {
			return framing{}, err
		}
		return framing{length: n, counted: true}, nil
	default:
		return framing{}, nil
	}
}

// checkCount rejects counts that cannot fit in the remaining input. minEntry is
// the least number of bytes one element occupies without a hint.
func (d *Decoder) checkCount(f framing, minEntry int) error {
	if !f.counted {
		return nil
	}
	width := minEntry
	if f.typed {
		switch f.ofType {
		case Null, True, False:
			width = minEntry - 1
		default:
			if s := f.ofType.Size(); s > 0 {
				width = minEntry - 1 + s
			}
		}
	}
	if width == 0 {
		if f.length > maxZeroWidthElements {
			return fmt.Errorf("%w: %d zero width elements", ErrOutOfRange, f.length)
		}
		return nil
	}
	if f.length > d.Remaining()/width {
		return ErrEOF
	}
	return nil
}

// consumeRedundant eats an end marker right after a counted container when
// WithRedundantClose is set. Running out of input here is not an error.
func (d *Decoder) consumeRedundant(end Marker) {
	if !d.redundantClose {
		return
	}
	if b, err := d.peekByte(); err == nil && Marker(b) == end {
		d.pos++
	}
}

// consumeIf consumes the next byte when it is the end marker.
func (d *Decoder) consumeIf(end Marker) (bool, error) {
	b, err := d.peekByte()
	if err != nil {
		return false, err
	}
	if Marker(b) == end {
		d.pos++
		return true, nil
	}
	return false, nil
}
