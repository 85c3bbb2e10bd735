package ubjson_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

func sampleDocument() ubjson.Value {
	return ubjson.NewObject(
		ubjson.Entry{Key: "id", Value: ubjson.NewInt64(1 << 40)},
		ubjson.Entry{Key: "name", Value: ubjson.NewString("widget")},
		ubjson.Entry{Key: "tags", Value: ubjson.NewArray(ubjson.NewString("a"), ubjson.NewChar('b'))},
		ubjson.Entry{Key: "price", Value: ubjson.NewFloat64(9.99)},
		ubjson.Entry{Key: "ratio", Value: ubjson.NewFloat32(0.5)},
		ubjson.Entry{Key: "big", Value: ubjson.NewNumber("123456789012345678901234567890")},
		ubjson.Entry{Key: "small", Value: ubjson.NewUint8(200)},
		ubjson.Entry{Key: "nothing", Value: ubjson.NewNull()},
		ubjson.Entry{Key: "flag", Value: ubjson.NewBool(false)},
		ubjson.Entry{Key: "nested", Value: ubjson.NewObject(
			ubjson.Entry{Key: "x", Value: ubjson.NewInt16(-300)},
			ubjson.Entry{Key: "y", Value: ubjson.NewInt32(70000)},
		)},
	)
}

func TestValueRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := ubjson.Marshal(doc)
	require.NoError(t, err)

	var decoded ubjson.Value
	require.NoError(t, ubjson.Unmarshal(data, &decoded))
	assert.True(t, doc.Equal(decoded), "got %s", decoded)

	again, err := ubjson.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestValueAccessors(t *testing.T) {
	doc := sampleDocument()

	assert.Equal(t, ubjson.KindObject, doc.Kind())
	assert.Equal(t, 10, doc.Len())

	id, ok := doc.Get("id")
	require.True(t, ok)
	n, ok := id.Int()
	require.True(t, ok)
	assert.Equal(t, int64(1<<40), n)

	tags, _ := doc.Get("tags")
	require.Len(t, tags.Array(), 2)
	s, ok := tags.Array()[1].Str()
	require.True(t, ok)
	assert.Equal(t, "b", s)

	big, _ := doc.Get("big")
	digits, ok := big.Str()
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", digits)

	nothing, _ := doc.Get("nothing")
	assert.True(t, nothing.IsNull())

	_, ok = doc.Get("missing")
	assert.False(t, ok)
}

func TestValueKeepsWireOrder(t *testing.T) {
	data := []byte{'{', 'i', 1, 'z', 'T', 'i', 1, 'a', 'F', '}'}

	var v ubjson.Value
	require.NoError(t, ubjson.Unmarshal(data, &v))
	require.Len(t, v.Object(), 2)
	assert.Equal(t, "z", v.Object()[0].Key)
	assert.Equal(t, "a", v.Object()[1].Key)
	assert.Equal(t, `{"z": true, "a": false}`, v.String())
}

func TestValueNoOp(t *testing.T) {
	var v ubjson.Value
	require.NoError(t, ubjson.Unmarshal([]byte("N"), &v))
	assert.Equal(t, ubjson.KindNoOp, v.Kind())
	assert.Nil(t, v.Interface())
}

func TestNewInt(t *testing.T) {
	testCases := []struct {
		in   int64
		kind ubjson.Kind
	}{
		{0, ubjson.KindInt8},
		{-128, ubjson.KindInt8},
		{128, ubjson.KindInt16},
		{math.MinInt16, ubjson.KindInt16},
		{math.MaxInt16 + 1, ubjson.KindInt32},
		{math.MaxInt32 + 1, ubjson.KindInt64},
	}
	for _, tc := range testCases {
		v := ubjson.NewInt(tc.in)
		assert.Equal(t, tc.kind, v.Kind(), "NewInt(%d)", tc.in)
		n, _ := v.Int()
		assert.Equal(t, tc.in, n)
	}
}

func TestFromInterface(t *testing.T) {
	v, err := ubjson.FromInterface(map[string]any{
		"b": []int{1, 2},
		"a": uint64(math.MaxUint64),
		"c": (*int)(nil),
	})
	require.NoError(t, err)

	expected := ubjson.NewObject(
		ubjson.Entry{Key: "a", Value: ubjson.NewNumber("18446744073709551615")},
		ubjson.Entry{Key: "b", Value: ubjson.NewArray(ubjson.NewInt64(1), ubjson.NewInt64(2))},
		ubjson.Entry{Key: "c", Value: ubjson.NewNull()},
	)
	assert.True(t, expected.Equal(v), "got %s", v)

	_, err = ubjson.FromInterface(map[int]string{1: "x"})
	assert.ErrorIs(t, err, ubjson.ErrInvalidKey)

	_, err = ubjson.FromInterface(func() {})
	assert.ErrorIs(t, err, ubjson.ErrUnsupportedType)
}

func TestValueMatchesReflectionEncoding(t *testing.T) {
	in := map[string]any{"n": uint16(7), "s": []string{"x"}, "b": []byte{1}}

	direct, err := ubjson.Marshal(in)
	require.NoError(t, err)

	v, err := ubjson.FromInterface(in)
	require.NoError(t, err)
	viaValue, err := ubjson.Marshal(v)
	require.NoError(t, err)

	assert.Equal(t, direct, viaValue)
}

func TestValueFloatEquality(t *testing.T) {
	nan := ubjson.NewFloat64(math.NaN())
	assert.True(t, nan.Equal(nan))
	assert.False(t, ubjson.NewFloat64(0).Equal(ubjson.NewFloat64(math.Copysign(0, -1))))
	assert.False(t, ubjson.NewFloat32(1).Equal(ubjson.NewFloat64(1)))
}
