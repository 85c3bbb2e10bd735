package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBORCodec implements the Codec interface for CBOR. Encoding is Core
// Deterministic (RFC 8949 §4.2), so equal values produce equal bytes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec initializes a CBOR codec. It panics only if the fixed options
// below are rejected by the library.
func NewCBORCodec() *CBORCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	return &CBORCodec{enc: enc, dec: dec}
}

func (c *CBORCodec) Name() string {
	return "cbor"
}

func (c *CBORCodec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBORCodec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
