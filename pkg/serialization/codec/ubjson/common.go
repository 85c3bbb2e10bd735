package ubjson

import (
	"reflect"
	"strings"
	"sync"
)

// field describes one encodable struct field.
type field struct {
	name      string
	index     []int
	omitEmpty bool
}

type structFields struct {
	list   []field
	byName map[string]int
}

var fieldCache sync.Map // map[reflect.Type]*structFields

// cachedFields lists the exported fields of t in declaration order. Field names
// come from the ubjson tag when present; a tag of "-" drops the field.
func cachedFields(t reflect.Type) *structFields {
	if f, ok := fieldCache.Load(t); ok {
		return f.(*structFields)
	}

	fields := &structFields{byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts := parseTag(sf.Tag.Get("ubjson"))
		if name == "-" && len(opts) == 0 {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fields.byName[name] = len(fields.list)
		fields.list = append(fields.list, field{
			name:      name,
			index:     sf.Index,
			omitEmpty: opts["omitempty"],
		})
	}

	f, _ := fieldCache.LoadOrStore(t, fields)
	return f.(*structFields)
}

// parseTag splits a tag such as "name,omitempty" into the name and its options.
func parseTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	opts := make(map[string]bool, len(parts)-1)
	for _, opt := range parts[1:] {
		if opt != "" {
			opts[opt] = true
		}
	}
	return parts[0], opts
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	default:
		return false
	}
}
