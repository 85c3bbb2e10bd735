package ubjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind is the shape held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNoOp
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindNumber
	KindChar
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:    "null",
	KindNoOp:    "noop",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindUint8:   "uint8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindNumber:  "number",
	KindChar:    "char",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a self-described document: a scalar, an array or an object whose
// entries keep their wire order. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  []Entry
}

// Entry is one key/value pair of an object Value.
type Entry struct {
	Key   string
	Value Value
}

func NewNull() Value             { return Value{} }
func NewNoOp() Value             { return Value{kind: KindNoOp} }
func NewInt8(v int8) Value       { return Value{kind: KindInt8, i: int64(v)} }
func NewUint8(v uint8) Value     { return Value{kind: KindUint8, i: int64(v)} }
func NewInt16(v int16) Value     { return Value{kind: KindInt16, i: int64(v)} }
func NewInt32(v int32) Value     { return Value{kind: KindInt32, i: int64(v)} }
func NewInt64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func NewFloat32(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }
func NewFloat64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func NewString(s string) Value   { return Value{kind: KindString, s: s} }

func NewBool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// NewNumber holds an arbitrary precision decimal. digits are not validated.
func NewNumber(digits string) Value { return Value{kind: KindNumber, s: digits} }

// NewChar holds a single ASCII character.
func NewChar(c byte) Value { return Value{kind: KindChar, i: int64(c)} }

func NewArray(items ...Value) Value { return Value{kind: KindArray, arr: items} }

func NewObject(entries ...Entry) Value { return Value{kind: KindObject, obj: entries} }

// NewInt picks the narrowest signed marker that holds v.
func NewInt(v int64) Value {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return NewInt8(int8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return NewInt16(int16(v))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return NewInt32(int32(v))
	default:
		return NewInt64(v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool { return v.kind == KindBool && v.i != 0 }

// Int returns any integer or char kind as int64.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt8, KindUint8, KindInt16, KindInt32, KindInt64, KindChar:
		return v.i, true
	default:
		return 0, false
	}
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// Str returns the text of string, number and char values.
func (v Value) Str() (string, bool) {
	switch v.kind {
	case KindString, KindNumber:
		return v.s, true
	case KindChar:
		return string(rune(v.i)), true
	default:
		return "", false
	}
}

func (v Value) Array() []Value { return v.arr }

func (v Value) Object() []Entry { return v.obj }

// Len is the number of elements or entries of a container and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Get returns the first entry named key.
func (v Value) Get(key string) (Value, bool) {
	for _, e := range v.obj {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindNoOp:
		return true
	case KindFloat32, KindFloat64:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindNumber, KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for i := range v.obj {
			if v.obj[i].Key != o.obj[i].Key || !v.obj[i].Value.Equal(o.obj[i].Value) {
				return false
			}
		}
		return true
	default:
		return v.i == o.i
	}
}

// Interface converts v to plain Go values: nil, bool, the sized integer and float
// types, string (numbers keep their digits), rune, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull, KindNoOp:
		return nil
	case KindBool:
		return v.i != 0
	case KindInt8:
		return int8(v.i)
	case KindUint8:
		return uint8(v.i)
	case KindInt16:
		return int16(v.i)
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindFloat32:
		return float32(v.f)
	case KindFloat64:
		return v.f
	case KindNumber, KindString:
		return v.s
	case KindChar:
		return rune(v.i)
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	default:
		out := make(map[string]any, len(v.obj))
		for _, e := range v.obj {
			out[e.Key] = e.Value.Interface()
		}
		return out
	}
}

// FromInterface builds a Value from plain Go values. Map keys must be strings
// and are sorted; uint64 and uint become numbers, as the Encoder writes them.
func FromInterface(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return x, nil
	case bool:
		return NewBool(x), nil
	case int8:
		return NewInt8(x), nil
	case int16:
		return NewInt16(x), nil
	case int32:
		return NewInt32(x), nil
	case int64:
		return NewInt64(x), nil
	case int:
		return NewInt64(int64(x)), nil
	case uint8:
		return NewUint8(x), nil
	case uint16:
		return NewInt32(int32(x)), nil
	case uint32:
		return NewInt64(int64(x)), nil
	case uint64:
		return NewNumber(strconv.FormatUint(x, 10)), nil
	case uint:
		return NewNumber(strconv.FormatUint(uint64(x), 10)), nil
	case float32:
		return NewFloat32(x), nil
	case float64:
		return NewFloat64(x), nil
	case string:
		return NewString(x), nil
	case []byte:
		items := make([]Value, len(x))
		for i, b := range x {
			items[i] = NewUint8(b)
		}
		return NewArray(items...), nil
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := FromInterface(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return NewArray(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, ErrInvalidKey
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			item, err := FromInterface(rv.MapIndex(k).Interface())
			if err != nil {
				return Value{}, err
			}
			entries[i] = Entry{Key: k.String(), Value: item}
		}
		return NewObject(entries...), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return NewNull(), nil
		}
		return FromInterface(rv.Elem().Interface())
	default:
		return Value{}, fmt.Errorf(ErrUnsupported, ErrUnsupportedType, rv.Type())
	}
}

func (v Value) MarshalUBJSON(e *Encoder) error {
	switch v.kind {
	case KindNull:
		return e.WriteNone()
	case KindNoOp:
		return e.WriteNoOp()
	case KindBool:
		return e.WriteBool(v.i != 0)
	case KindInt8:
		return e.WriteInt8(int8(v.i))
	case KindUint8:
		return e.WriteUint8(uint8(v.i))
	case KindInt16:
		return e.WriteInt16(int16(v.i))
	case KindInt32:
		return e.WriteInt32(int32(v.i))
	case KindInt64:
		return e.WriteInt64(v.i)
	case KindFloat32:
		return e.WriteFloat32(float32(v.f))
	case KindFloat64:
		return e.WriteFloat64(v.f)
	case KindNumber:
		return e.WriteNumber(v.s)
	case KindChar:
		return e.WriteASCIIChar(byte(v.i))
	case KindString:
		return e.WriteString(v.s)
	case KindArray:
		a, err := e.BeginArray(len(v.arr))
		if err != nil {
			return err
		}
		for i := range v.arr {
			if err := a.Element(v.arr[i].MarshalUBJSON); err != nil {
				return err
			}
		}
		return a.End()
	default:
		o, err := e.BeginObject(len(v.obj))
		if err != nil {
			return err
		}
		for i := range v.obj {
			if err := o.Field(v.obj[i].Key, v.obj[i].Value.MarshalUBJSON); err != nil {
				return err
			}
		}
		return o.End()
	}
}

func (v *Value) UnmarshalUBJSON(d *Decoder) error {
	return d.DecodeAny(&valueBuilder{out: v})
}

// String renders v in a compact JSON-like notation that keeps the kinds visible.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

// MarshalJSON renders v as JSON. Object entries keep their order, numbers keep
// their digits and chars become one character strings. NoOp renders as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.appendJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) appendJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull, KindNoOp:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.i != 0))
	case KindInt8, KindUint8, KindInt16, KindInt32, KindInt64:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat32, KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%w: %v has no JSON form", ErrUnsupportedType, v.f)
		}
		bits := 64
		if v.kind == KindFloat32 {
			bits = 32
		}
		buf.WriteString(strconv.FormatFloat(v.f, 'g', -1, bits))
	case KindNumber:
		buf.WriteString(v.s)
	case KindChar, KindString:
		s, _ := v.Str()
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, e := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := e.Value.appendJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindNoOp:
		sb.WriteString("noop")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.i != 0))
	case KindInt8, KindUint8, KindInt16, KindInt32, KindInt64:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat32:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 32))
	case KindFloat64:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindNumber:
		sb.WriteString(v.s)
		sb.WriteByte('n')
	case KindChar:
		sb.WriteString(strconv.QuoteRune(rune(v.i)))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.format(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		for i, e := range v.obj {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteByte('}')
	}
}

// valueBuilder is the Visitor that materialises a Value.
type valueBuilder struct {
	out *Value
}

func (b *valueBuilder) VisitNull() error {
	*b.out = NewNull()
	return nil
}

func (b *valueBuilder) VisitNoOp() error {
	*b.out = NewNoOp()
	return nil
}

func (b *valueBuilder) VisitBool(v bool) error {
	*b.out = NewBool(v)
	return nil
}

func (b *valueBuilder) VisitInt(v int64, m Marker) error {
	switch m {
	case Int8:
		*b.out = NewInt8(int8(v))
	case Int16:
		*b.out = NewInt16(int16(v))
	case Int32:
		*b.out = NewInt32(int32(v))
	default:
		*b.out = NewInt64(v)
	}
	return nil
}

func (b *valueBuilder) VisitUint8(v uint8) error {
	*b.out = NewUint8(v)
	return nil
}

func (b *valueBuilder) VisitFloat(v float64, m Marker) error {
	if m == Float32 {
		*b.out = NewFloat32(float32(v))
	} else {
		*b.out = NewFloat64(v)
	}
	return nil
}

func (b *valueBuilder) VisitNumber(digits string) error {
	*b.out = NewNumber(digits)
	return nil
}

func (b *valueBuilder) VisitChar(c rune) error {
	*b.out = NewChar(byte(c))
	return nil
}

func (b *valueBuilder) VisitString(s []byte) error {
	*b.out = NewString(string(s))
	return nil
}

func (b *valueBuilder) VisitArray(a *ArrayAccess) error {
	var items []Value
	if n, ok := a.Len(); ok {
		items = make([]Value, 0, min(n, a.d.Remaining()))
	}
	for {
		var item Value
		ok, err := a.Next(item.UnmarshalUBJSON)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		items = append(items, item)
	}
	*b.out = NewArray(items...)
	return nil
}

func (b *valueBuilder) VisitObject(o *ObjectAccess) error {
	var entries []Entry
	if n, ok := o.Len(); ok {
		entries = make([]Entry, 0, min(n, o.d.Remaining()))
	}
	for {
		key, ok, err := o.NextKeyString()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		var item Value
		if err := o.NextValue(item.UnmarshalUBJSON); err != nil {
			return err
		}
		entries = append(entries, Entry{Key: key, Value: item})
	}
	*b.out = NewObject(entries...)
	return nil
}
