package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/ubjson/pkg/serialization"
	"github.com/eigerco/ubjson/pkg/serialization/codec"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

type PayloadExample struct {
	ID   int    `json:"id" ubjson:"id"`
	Data []byte `json:"data" ubjson:"data"`
}

func TestJSONSerializer(t *testing.T) {
	jsonCodec := &codec.JSONCodec{}
	serializer := serialization.NewSerializer(jsonCodec)

	example := PayloadExample{ID: 1, Data: []byte{1, 2, 3}}

	encoded, err := serializer.Encode(&example)
	require.NoError(t, err)
	require.NotNil(t, encoded)

	var decoded PayloadExample
	err = serializer.Decode(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestUBJSONSerializer(t *testing.T) {
	serializer := serialization.NewSerializer(codec.NewUBJSONCodec())

	example := PayloadExample{ID: 2, Data: []byte{1, 2, 3}}

	encoded, err := serializer.Encode(example)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), encoded[0])

	var decoded PayloadExample
	err = serializer.Decode(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestSerializerWrapsErrors(t *testing.T) {
	serializer := serialization.NewSerializer(codec.NewUBJSONCodec())

	var decoded PayloadExample
	err := serializer.Decode([]byte("T"), &decoded)
	assert.ErrorIs(t, err, ubjson.ErrExpected)
	assert.ErrorContains(t, err, "ubjson decode")
}

func TestTranscode(t *testing.T) {
	source := serialization.NewSerializer(codec.NewUBJSONCodec())
	example := PayloadExample{ID: 3, Data: []byte{9}}

	encoded, err := source.Encode(example)
	require.NoError(t, err)

	cborCodec := codec.NewCBORCodec()
	transcoded, err := serialization.Transcode[PayloadExample](source, encoded, cborCodec)
	require.NoError(t, err)

	var decoded PayloadExample
	require.NoError(t, cborCodec.Unmarshal(transcoded, &decoded))
	assert.Equal(t, example, decoded)
}
