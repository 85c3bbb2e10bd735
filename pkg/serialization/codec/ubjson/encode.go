package ubjson

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
)

// Marshal returns the encoding of v.
//
// Structs become counted objects keyed by field name (see the ubjson struct tag),
// maps with string keys become counted objects with sorted keys, slices and
// arrays become counted arrays, []byte becomes an array of Uint8 values, nil
// pointers become Null. Types implementing Marshaler or Variant encode themselves.
func Marshal(v any) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	if err := NewEncoder(buffer).Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Encode writes v using the same rules as Marshal.
func (e *Encoder) Encode(v any) error {
	return e.marshal(v)
}

func (e *Encoder) marshal(in any) error {
	if rv := reflect.ValueOf(in); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return e.WriteNone()
	}
	if m, ok := in.(Marshaler); ok {
		return m.MarshalUBJSON(e)
	}
	if v, ok := in.(Variant); ok {
		return e.encodeVariant(v)
	}

	switch v := in.(type) {
	case nil:
		return e.WriteNone()
	case bool:
		return e.WriteBool(v)
	case int8:
		return e.WriteInt8(v)
	case int16:
		return e.WriteInt16(v)
	case int32:
		return e.WriteInt32(v)
	case int64:
		return e.WriteInt64(v)
	case int:
		return e.WriteInt64(int64(v))
	case uint8:
		return e.WriteUint8(v)
	case uint16:
		return e.WriteUint16(v)
	case uint32:
		return e.WriteUint32(v)
	case uint64:
		return e.WriteUint64(v)
	case uint:
		return e.WriteUint64(uint64(v))
	case float32:
		return e.WriteFloat32(v)
	case float64:
		return e.WriteFloat64(v)
	case string:
		return e.WriteString(v)
	case []byte:
		return e.WriteBytes(v)
	default:
		return e.handleReflectTypes(in)
	}
}

func (e *Encoder) handleReflectTypes(in any) error {
	val := reflect.ValueOf(in)
	switch val.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return e.encodeCustomPrimitive(val)
	case reflect.Ptr:
		if val.IsNil() {
			return e.WriteNone()
		}
		return e.WriteSome(func(e *Encoder) error {
			return e.marshal(val.Elem().Interface())
		})
	case reflect.Struct:
		return e.encodeStruct(val)
	case reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, val.Len())
			reflect.Copy(reflect.ValueOf(b), val)
			return e.WriteBytes(b)
		}
		return e.encodeSequence(val)
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return e.WriteBytes(val.Bytes())
		}
		return e.encodeSequence(val)
	case reflect.Map:
		return e.encodeMap(val)
	default:
		return fmt.Errorf(ErrUnsupported, ErrUnsupportedType, val.Type())
	}
}

// encodeCustomPrimitive handles named types whose underlying type is a primitive.
func (e *Encoder) encodeCustomPrimitive(val reflect.Value) error {
	switch val.Kind() {
	case reflect.Bool:
		return e.WriteBool(val.Bool())
	case reflect.Int8:
		return e.WriteInt8(int8(val.Int()))
	case reflect.Int16:
		return e.WriteInt16(int16(val.Int()))
	case reflect.Int32:
		return e.WriteInt32(int32(val.Int()))
	case reflect.Int, reflect.Int64:
		return e.WriteInt64(val.Int())
	case reflect.Uint8:
		return e.WriteUint8(uint8(val.Uint()))
	case reflect.Uint16:
		return e.WriteUint16(uint16(val.Uint()))
	case reflect.Uint32:
		return e.WriteUint32(uint32(val.Uint()))
	case reflect.Uint, reflect.Uint64:
		return e.WriteUint64(val.Uint())
	case reflect.Float32:
		return e.WriteFloat32(float32(val.Float()))
	case reflect.Float64:
		return e.WriteFloat64(val.Float())
	case reflect.String:
		return e.WriteString(val.String())
	default:
		return fmt.Errorf(ErrUnsupported, ErrUnsupportedType, val.Type())
	}
}

func (e *Encoder) encodeSequence(val reflect.Value) error {
	a, err := e.BeginArray(val.Len())
	if err != nil {
		return err
	}
	for i := 0; i < val.Len(); i++ {
		item := val.Index(i).Interface()
		if err := a.Element(func(e *Encoder) error { return e.marshal(item) }); err != nil {
			return err
		}
	}
	return a.End()
}

// encodeMap writes a counted object. Keys are written in ModeKey, so maps whose
// keys are not strings fail with ErrInvalidKey as soon as they have an entry.
func (e *Encoder) encodeMap(val reflect.Value) error {
	keys := val.MapKeys()
	if val.Type().Key().Kind() == reflect.String {
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
	}

	o, err := e.BeginObject(len(keys))
	if err != nil {
		return err
	}
	for _, key := range keys {
		k := key.Interface()
		if err := o.Key(func(e *Encoder) error { return e.marshal(k) }); err != nil {
			return err
		}
		v := val.MapIndex(key).Interface()
		if err := o.Value(func(e *Encoder) error { return e.marshal(v) }); err != nil {
			return err
		}
	}
	return o.End()
}

func (e *Encoder) encodeStruct(val reflect.Value) error {
	fields := cachedFields(val.Type())
	present := make([]*field, 0, len(fields.list))
	for i := range fields.list {
		f := &fields.list[i]
		if f.omitEmpty && isEmptyValue(val.FieldByIndex(f.index)) {
			continue
		}
		present = append(present, f)
	}

	o, err := e.BeginObject(len(present))
	if err != nil {
		return err
	}
	if err := e.encodeFields(o, val, present); err != nil {
		return err
	}
	return o.End()
}

func (e *Encoder) encodeFields(o *ObjectEncoder, val reflect.Value, fields []*field) error {
	for _, f := range fields {
		fv := val.FieldByIndex(f.index).Interface()
		err := o.Field(f.name, func(e *Encoder) error { return e.marshal(fv) })
		if err != nil {
			return fmt.Errorf(ErrEncodingField, f.name, err)
		}
	}
	return nil
}

func (e *Encoder) encodeVariant(v Variant) error {
	name, payload := v.UBJSONVariant()
	if payload == nil {
		return e.WriteUnitVariant(name)
	}

	if tuple, ok := payload.(Tuple); ok {
		a, err := e.BeginTupleVariant(name, len(tuple))
		if err != nil {
			return err
		}
		for _, item := range tuple {
			item := item
			if err := a.Element(func(e *Encoder) error { return e.marshal(item) }); err != nil {
				return err
			}
		}
		return a.End()
	}

	val := reflect.ValueOf(payload)
	if _, custom := payload.(Marshaler); !custom && val.Kind() == reflect.Struct {
		fields := cachedFields(val.Type())
		all := make([]*field, len(fields.list))
		for i := range fields.list {
			all[i] = &fields.list[i]
		}
		o, err := e.BeginStructVariant(name, len(all))
		if err != nil {
			return err
		}
		if err := e.encodeFields(o, val, all); err != nil {
			return err
		}
		return o.End()
	}

	return e.WriteNewtypeVariant(name, func(e *Encoder) error { return e.marshal(payload) })
}
