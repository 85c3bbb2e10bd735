package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// FromJSON parses a JSON document into a Value. Comments and trailing commas
// (JSONC) are accepted. Object entries keep their source order. Integers take the
// narrowest signed kind that holds them, integers beyond 64 bits become
// Numbers and everything else with a fraction or exponent becomes a Float64.
func FromJSON(data []byte) (ubjson.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	v, err := readJSON(dec)
	if err != nil {
		return ubjson.Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ubjson.Value{}, fmt.Errorf("%w: more than one JSON value", ubjson.ErrTrailingData)
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (ubjson.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return ubjson.Value{}, fmt.Errorf("reading JSON: %w", err)
	}

	switch t := tok.(type) {
	case nil:
		return ubjson.NewNull(), nil
	case bool:
		return ubjson.NewBool(t), nil
	case string:
		return ubjson.NewString(t), nil
	case json.Number:
		return fromJSONNumber(t)
	case json.Delim:
		switch t {
		case '[':
			var items []ubjson.Value
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return ubjson.Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return ubjson.Value{}, err
			}
			return ubjson.NewArray(items...), nil
		case '{':
			var entries []ubjson.Entry
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return ubjson.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return ubjson.Value{}, fmt.Errorf("%w: %v", ubjson.ErrInvalidKey, keyTok)
				}
				item, err := readJSON(dec)
				if err != nil {
					return ubjson.Value{}, err
				}
				entries = append(entries, ubjson.Entry{Key: key, Value: item})
			}
			if _, err := dec.Token(); err != nil {
				return ubjson.Value{}, err
			}
			return ubjson.NewObject(entries...), nil
		}
	}
	return ubjson.Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func fromJSONNumber(n json.Number) (ubjson.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ubjson.NewInt(i), nil
		}
		return ubjson.NewNumber(s), nil
	}
	f, err := n.Float64()
	if err != nil {
		return ubjson.NewNumber(s), nil
	}
	return ubjson.NewFloat64(f), nil
}

// ToJSON renders v as JSON, indented by two spaces when indent is set.
func ToJSON(v ubjson.Value, indent bool) ([]byte, error) {
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if !indent {
		return out, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, out, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
