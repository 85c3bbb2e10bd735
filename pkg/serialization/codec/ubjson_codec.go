package codec

import (
	"fmt"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// UBJSONCodec implements the Codec interface for the marker-tagged binary format.
type UBJSONCodec struct {
	opts []ubjson.DecoderOption
}

// NewUBJSONCodec initializes a UBJSON codec. The options apply to every Unmarshal.
func NewUBJSONCodec(opts ...ubjson.DecoderOption) *UBJSONCodec {
	return &UBJSONCodec{opts: opts}
}

func (u *UBJSONCodec) Name() string {
	return "ubjson"
}

func (u *UBJSONCodec) Marshal(v any) ([]byte, error) {
	return ubjson.Marshal(v)
}

// Unmarshal decodes exactly one value; anything after it is ErrTrailingData.
func (u *UBJSONCodec) Unmarshal(data []byte, v any) error {
	d := ubjson.NewDecoder(data, u.opts...)
	if err := d.Decode(v); err != nil {
		return err
	}
	if n := d.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d bytes after offset %d", ubjson.ErrTrailingData, n, d.Offset())
	}
	return nil
}
