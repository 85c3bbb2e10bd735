package serialization

import (
	"fmt"

	"github.com/eigerco/ubjson/pkg/serialization/codec"
)

// Serializer provides methods to encode and decode using a specified codec.
type Serializer struct {
	codec codec.Codec
}

// NewSerializer initializes a new Serializer with the given codec.
func NewSerializer(c codec.Codec) *Serializer {
	return &Serializer{codec: c}
}

// Codec returns the codec the serializer was built with.
func (s *Serializer) Codec() codec.Codec {
	return s.codec
}

// Encode serializes the given value using the codec.
func (s *Serializer) Encode(v any) ([]byte, error) {
	b, err := s.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", s.codec.Name(), err)
	}
	return b, nil
}

// Decode deserializes the given data into the specified value using the codec.
func (s *Serializer) Decode(data []byte, v any) error {
	if err := s.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s decode: %w", s.codec.Name(), err)
	}
	return nil
}

// Transcode decodes data with the serializer's codec into a fresh value of
// type T and encodes it again with target.
func Transcode[T any](s *Serializer, data []byte, target codec.Codec) ([]byte, error) {
	var v T
	if err := s.Decode(data, &v); err != nil {
		return nil, err
	}
	return NewSerializer(target).Encode(v)
}
