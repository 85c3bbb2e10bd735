package convert

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("convert: CBOR encoder initialization failed: " + err.Error())
	}
	// The default map type (map[any]any) keeps non-string keys visible so
	// they can be reported as ErrInvalidKey instead of failing deep inside
	// the decoder.
	cborDecMode, err = cbor.DecOptions{
		BigIntDec: cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic("convert: CBOR decoder initialization failed: " + err.Error())
	}
}

// FromCBOR decodes one CBOR item into a Value. Byte strings become arrays of
// Uint8, map keys must be text and are sorted, unsigned integers above the
// int64 range and bignums become Numbers.
func FromCBOR(data []byte) (ubjson.Value, error) {
	var raw any
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return ubjson.Value{}, fmt.Errorf("decoding CBOR: %w", err)
	}
	return fromCBORItem(raw)
}

func fromCBORItem(item any) (ubjson.Value, error) {
	switch x := item.(type) {
	case nil:
		return ubjson.NewNull(), nil
	case bool:
		return ubjson.NewBool(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return ubjson.NewNumber(strconv.FormatUint(x, 10)), nil
		}
		return ubjson.NewInt(int64(x)), nil
	case int64:
		return ubjson.NewInt(x), nil
	case *big.Int:
		return ubjson.NewNumber(x.String()), nil
	case float32:
		return ubjson.NewFloat32(x), nil
	case float64:
		return ubjson.NewFloat64(x), nil
	case string:
		return ubjson.NewString(x), nil
	case []byte:
		items := make([]ubjson.Value, len(x))
		for i, b := range x {
			items[i] = ubjson.NewUint8(b)
		}
		return ubjson.NewArray(items...), nil
	case []any:
		items := make([]ubjson.Value, len(x))
		for i, e := range x {
			v, err := fromCBORItem(e)
			if err != nil {
				return ubjson.Value{}, err
			}
			items[i] = v
		}
		return ubjson.NewArray(items...), nil
	case map[any]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			s, ok := k.(string)
			if !ok {
				return ubjson.Value{}, fmt.Errorf("%w: CBOR map key %v", ubjson.ErrInvalidKey, k)
			}
			keys = append(keys, s)
		}
		sort.Strings(keys)
		entries := make([]ubjson.Entry, len(keys))
		for i, k := range keys {
			v, err := fromCBORItem(x[k])
			if err != nil {
				return ubjson.Value{}, err
			}
			entries[i] = ubjson.Entry{Key: k, Value: v}
		}
		return ubjson.NewObject(entries...), nil
	default:
		return ubjson.Value{}, fmt.Errorf("%w: CBOR item %T", ubjson.ErrUnsupportedType, item)
	}
}

// ToCBOR encodes v as Core Deterministic CBOR. Numbers become integers or
// bignums when they are integral and float64 otherwise; chars become text.
func ToCBOR(v ubjson.Value) ([]byte, error) {
	item, err := toCBORItem(v)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(item)
}

func toCBORItem(v ubjson.Value) (any, error) {
	switch v.Kind() {
	case ubjson.KindNull, ubjson.KindNoOp:
		return nil, nil
	case ubjson.KindBool:
		return v.Bool(), nil
	case ubjson.KindInt8, ubjson.KindUint8, ubjson.KindInt16, ubjson.KindInt32, ubjson.KindInt64:
		n, _ := v.Int()
		return n, nil
	case ubjson.KindFloat32:
		f, _ := v.Float()
		return float32(f), nil
	case ubjson.KindFloat64:
		f, _ := v.Float()
		return f, nil
	case ubjson.KindNumber:
		digits, _ := v.Str()
		if n, ok := new(big.Int).SetString(digits, 10); ok {
			if n.IsInt64() {
				return n.Int64(), nil
			}
			if n.IsUint64() {
				return n.Uint64(), nil
			}
			return n, nil
		}
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ubjson.ErrInvalidString, digits)
		}
		return f, nil
	case ubjson.KindChar, ubjson.KindString:
		s, _ := v.Str()
		return s, nil
	case ubjson.KindArray:
		out := make([]any, v.Len())
		for i, item := range v.Array() {
			x, err := toCBORItem(item)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		out := make(map[string]any, v.Len())
		for _, e := range v.Object() {
			x, err := toCBORItem(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = x
		}
		return out, nil
	}
}
