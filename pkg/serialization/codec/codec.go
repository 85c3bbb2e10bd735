package codec

import (
	"fmt"
	"strings"

	"github.com/eigerco/ubjson/pkg/log"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// Codec encodes Go values into one wire format and decodes them back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ByName returns the codec called name: ubjson, json or cbor. The decoder
// options only affect ubjson.
func ByName(name string, opts ...ubjson.DecoderOption) (Codec, error) {
	var c Codec
	switch strings.ToLower(name) {
	case "ubjson", "ubj":
		c = NewUBJSONCodec(opts...)
	case "json":
		c = &JSONCodec{}
	case "cbor":
		c = NewCBORCodec()
	default:
		return nil, fmt.Errorf("unknown codec %q, expected one of %s", name, strings.Join(Names(), ", "))
	}
	log.Codec.Debug().Str("codec", c.Name()).Msg("selected codec")
	return c, nil
}

// Names lists the codec names ByName accepts.
func Names() []string {
	return []string{"cbor", "json", "ubjson"}
}
