package ubjson

import (
	"bytes"
	"fmt"
	"reflect"
)

// Unmarshal decodes one value from data into dst, which must be a non-nil
// pointer. Bytes left over after the value are reported as ErrTrailingData.
func Unmarshal(data []byte, dst any) error {
	return unmarshalAll(NewDecoder(data), dst)
}

// UnmarshalNoCopy is Unmarshal with WithNoCopy set: byte slices in dst may alias data.
func UnmarshalNoCopy(data []byte, dst any) error {
	return unmarshalAll(NewDecoder(data, WithNoCopy()), dst)
}

func unmarshalAll(d *Decoder, dst any) error {
	if err := d.Decode(dst); err != nil {
		return err
	}
	if n := d.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d bytes after offset %d", ErrTrailingData, n, d.Offset())
	}
	return nil
}

// Decode reads the next value into dst using the same rules as Unmarshal. It
// does not check for trailing data, so it can be called repeatedly on a stream
// of concatenated values.
func (d *Decoder) Decode(dst any) error {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return fmt.Errorf(ErrInvalidPointer, ErrUnsupportedType, dst)
	}
	return d.unmarshal(dstv.Elem())
}

func (d *Decoder) unmarshal(value reflect.Value) error {
	if value.CanAddr() {
		addr := value.Addr()
		if u, ok := addr.Interface().(Unmarshaler); ok {
			return u.UnmarshalUBJSON(d)
		}
		if vt, ok := addr.Interface().(VariantType); ok {
			return d.decodeVariantType(vt)
		}
	}

	switch value.Kind() {
	case reflect.Bool:
		b, err := d.DecodeBool()
		if err != nil {
			return err
		}
		value.SetBool(b)
	case reflect.Int8:
		n, err := d.DecodeInt8()
		if err != nil {
			return err
		}
		value.SetInt(int64(n))
	case reflect.Int16:
		n, err := d.DecodeInt16()
		if err != nil {
			return err
		}
		value.SetInt(int64(n))
	case reflect.Int32:
		n, err := d.DecodeInt32()
		if err != nil {
			return err
		}
		value.SetInt(int64(n))
	case reflect.Int, reflect.Int64:
		n, err := d.DecodeInt64()
		if err != nil {
			return err
		}
		value.SetInt(n)
	case reflect.Uint8:
		n, err := d.DecodeUint8()
		if err != nil {
			return err
		}
		value.SetUint(uint64(n))
	case reflect.Uint16:
		n, err := d.DecodeUint16()
		if err != nil {
			return err
		}
		value.SetUint(uint64(n))
	case reflect.Uint32:
		n, err := d.DecodeUint32()
		if err != nil {
			return err
		}
		value.SetUint(uint64(n))
	case reflect.Uint, reflect.Uint64:
		n, err := d.DecodeUint64()
		if err != nil {
			return err
		}
		value.SetUint(n)
	case reflect.Float32:
		f, err := d.DecodeFloat32()
		if err != nil {
			return err
		}
		value.SetFloat(float64(f))
	case reflect.Float64:
		f, err := d.DecodeFloat64()
		if err != nil {
			return err
		}
		value.SetFloat(f)
	case reflect.String:
		s, err := d.DecodeString()
		if err != nil {
			return err
		}
		value.SetString(s)
	case reflect.Ptr:
		return d.decodePointer(value)
	case reflect.Interface:
		return d.decodeInterface(value)
	case reflect.Struct:
		return d.decodeStruct(value)
	case reflect.Array:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return d.decodeByteArray(value)
		}
		return d.decodeArray(value)
	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return d.decodeBytes(value)
		}
		return d.decodeSlice(value)
	case reflect.Map:
		return d.decodeMap(value)
	default:
		return fmt.Errorf(ErrUnsupported, ErrUnsupportedType, value.Type())
	}
	return nil
}

// decodePointer maps Null to a nil pointer and allocates for anything else.
func (d *Decoder) decodePointer(value reflect.Value) error {
	present, err := d.DecodeOption(func(d *Decoder) error {
		if value.IsNil() {
			value.Set(reflect.New(value.Type().Elem()))
		}
		return d.unmarshal(value.Elem())
	})
	if err != nil {
		return err
	}
	if !present {
		value.Set(reflect.Zero(value.Type()))
	}
	return nil
}

// decodeInterface fills an empty interface with the plain Go form of the next
// value (see Value.Interface). A non-empty interface must already hold a pointer.
func (d *Decoder) decodeInterface(value reflect.Value) error {
	if value.NumMethod() > 0 {
		if value.IsNil() || value.Elem().Kind() != reflect.Ptr {
			return fmt.Errorf(ErrUnsupported, ErrUnsupportedType, value.Type())
		}
		held := value.Elem()
		if held.IsNil() {
			held = reflect.New(held.Type().Elem())
			value.Set(held)
		}
		return d.unmarshal(held.Elem())
	}

	var v Value
	if err := v.UnmarshalUBJSON(d); err != nil {
		return err
	}
	iface := v.Interface()
	if iface == nil {
		value.Set(reflect.Zero(value.Type()))
		return nil
	}
	value.Set(reflect.ValueOf(iface))
	return nil
}

func (d *Decoder) decodeBytes(value reflect.Value) error {
	b, err := d.DecodeBytes()
	if err != nil {
		return err
	}
	if !d.noCopy {
		b = bytes.Clone(b)
	}
	value.SetBytes(b)
	return nil
}

func (d *Decoder) decodeByteArray(value reflect.Value) error {
	b, err := d.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != value.Len() {
		return Errorf("%d bytes do not fit %s", len(b), value.Type())
	}
	reflect.Copy(value, reflect.ValueOf(b))
	return nil
}

func (d *Decoder) decodeSlice(value reflect.Value) error {
	a, err := d.DecodeArray()
	if err != nil {
		return err
	}

	capacity := 0
	if n, ok := a.Len(); ok {
		capacity = min(n, d.Remaining())
	}
	out := reflect.MakeSlice(value.Type(), 0, capacity)
	elemType := value.Type().Elem()
	for i := 0; ; i++ {
		elem := reflect.New(elemType).Elem()
		ok, err := a.Next(func(d *Decoder) error { return d.unmarshal(elem) })
		if err != nil {
			return fmt.Errorf(ErrDecodingElem, i, err)
		}
		if !ok {
			break
		}
		out = reflect.Append(out, elem)
	}
	value.Set(out)
	return nil
}

// decodeArray fills a Go array. Missing trailing elements keep their zero value.
func (d *Decoder) decodeArray(value reflect.Value) error {
	a, err := d.DecodeArray()
	if err != nil {
		return err
	}
	for i := 0; ; i++ {
		if i == value.Len() {
			if a.Done() {
				return nil
			}
			more, err := a.Next(func(d *Decoder) error { return d.Skip() })
			if err != nil {
				return err
			}
			if more {
				return Errorf("array has more than %d elements", value.Len())
			}
			return nil
		}
		ok, err := a.Next(func(d *Decoder) error { return d.unmarshal(value.Index(i)) })
		if err != nil {
			return fmt.Errorf(ErrDecodingElem, i, err)
		}
		if !ok {
			return nil
		}
	}
}

// decodeMap only supports maps keyed by a string kind, since keys are always strings on the wire.
func (d *Decoder) decodeMap(value reflect.Value) error {
	mapType := value.Type()
	if mapType.Key().Kind() != reflect.String {
		return fmt.Errorf("%w: map key type %s", ErrInvalidKey, mapType.Key())
	}

	o, err := d.DecodeObject()
	if err != nil {
		return err
	}

	size := 0
	if n, ok := o.Len(); ok {
		size = min(n, d.Remaining()/2)
	}
	m := reflect.MakeMapWithSize(mapType, size)
	for {
		key, ok, err := o.NextKeyString()
		if err != nil {
			return fmt.Errorf(ErrDecodingMapKey, err)
		}
		if !ok {
			break
		}
		elem := reflect.New(mapType.Elem()).Elem()
		if err := o.NextValue(func(d *Decoder) error { return d.unmarshal(elem) }); err != nil {
			return fmt.Errorf(ErrDecodingMapVal, key, err)
		}
		m.SetMapIndex(reflect.ValueOf(key).Convert(mapType.Key()), elem)
	}
	value.Set(m)
	return nil
}

// decodeStruct matches object keys to fields in any order. Unknown keys are skipped.
func (d *Decoder) decodeStruct(value reflect.Value) error {
	o, err := d.DecodeObject()
	if err != nil {
		return err
	}
	return d.decodeFields(o, value)
}

func (d *Decoder) decodeFields(o *ObjectAccess, value reflect.Value) error {
	fields := cachedFields(value.Type())
	for {
		key, ok, err := o.NextKeyString()
		if err != nil {
			return fmt.Errorf(ErrDecodingMapKey, err)
		}
		if !ok {
			return nil
		}
		idx, found := fields.byName[key]
		if !found {
			if err := o.NextValue(func(d *Decoder) error { return d.Skip() }); err != nil {
				return err
			}
			continue
		}
		f := fields.list[idx]
		target := value.FieldByIndex(f.index)
		if err := o.NextValue(func(d *Decoder) error { return d.unmarshal(target) }); err != nil {
			return fmt.Errorf(ErrDecodingField, f.name, err)
		}
	}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// decodeVariantType asks vt for a prototype of the named variant's payload,
// decodes into a fresh value of that type and hands it back through SetVariant.
func (d *Decoder) decodeVariantType(vt VariantType) error {
	return d.DecodeVariant(func(name string, va *VariantAccess) error {
		proto, err := vt.VariantPayload(name)
		if err != nil {
			return err
		}
		if proto == nil {
			if err := va.Unit(); err != nil {
				return fmt.Errorf("%w: variant %q has no payload", err, name)
			}
			return vt.SetVariant(name, nil)
		}

		if tuple, ok := proto.(Tuple); ok {
			out := make(Tuple, len(tuple))
			err := va.Tuple(func(a *ArrayAccess) error {
				for i, elemProto := range tuple {
					elemType := anyType
					if elemProto != nil {
						elemType = reflect.TypeOf(elemProto)
					}
					elem := reflect.New(elemType).Elem()
					ok, err := a.Next(func(d *Decoder) error { return d.unmarshal(elem) })
					if err != nil {
						return fmt.Errorf(ErrDecodingElem, i, err)
					}
					if !ok {
						return Errorf("tuple variant %q: expected %d fields, got %d", name, len(tuple), i)
					}
					out[i] = elem.Interface()
				}
				extra, err := a.Next(func(d *Decoder) error { return d.Skip() })
				if err != nil {
					return err
				}
				if extra {
					return Errorf("tuple variant %q: expected %d fields, got more", name, len(tuple))
				}
				return nil
			})
			if err != nil {
				return err
			}
			return vt.SetVariant(name, out)
		}

		ptr := reflect.New(reflect.TypeOf(proto))
		_, custom := ptr.Interface().(Unmarshaler)
		if !custom && ptr.Elem().Kind() == reflect.Struct {
			err = va.Struct(func(o *ObjectAccess) error { return d.decodeFields(o, ptr.Elem()) })
		} else {
			err = va.Newtype(func(d *Decoder) error { return d.unmarshal(ptr.Elem()) })
		}
		if err != nil {
			return err
		}
		return vt.SetVariant(name, ptr.Elem().Interface())
	})
}
