package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/ubjson/pkg/db/pebble"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

type user struct {
	Name  string   `ubjson:"name"`
	Age   uint8    `ubjson:"age"`
	Roles []string `ubjson:"roles,omitempty"`
}

func newStore(t *testing.T, opts ...ubjson.DecoderOption) (*Store, *pebble.KVStore) {
	t.Helper()
	kv, err := pebble.NewKVStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv, opts...), kv
}

func TestPutGet(t *testing.T) {
	s, _ := newStore(t)

	in := user{Name: "ada", Age: 36, Roles: []string{"admin"}}
	require.NoError(t, s.Put("users/ada", in))

	var out user
	require.NoError(t, s.Get("users/ada", &out))
	assert.Equal(t, in, out)

	v, err := s.GetValue("users/ada")
	require.NoError(t, err)
	name, ok := v.Get("name")
	require.True(t, ok)
	str, _ := name.Str()
	assert.Equal(t, "ada", str)
}

func TestRecordLayout(t *testing.T) {
	s, kv := newStore(t)
	require.NoError(t, s.Put("n", int8(7)))

	record, err := kv.Get([]byte("doc:n"))
	require.NoError(t, err)
	require.Len(t, record, checksumSize+2)
	assert.Equal(t, []byte{'i', 7}, record[checksumSize:])

	raw, err := s.GetRaw("n")
	require.NoError(t, err)
	assert.Equal(t, []byte{'i', 7}, raw)
}

func TestGetMissing(t *testing.T) {
	s, _ := newStore(t)
	var out user
	assert.ErrorIs(t, s.Get("nobody", &out), ErrNotFound)
}

func TestCorruptedRecord(t *testing.T) {
	s, kv := newStore(t)
	require.NoError(t, s.Put("doc", "payload"))

	record, err := kv.Get([]byte("doc:doc"))
	require.NoError(t, err)
	record[len(record)-1] ^= 0xff
	require.NoError(t, kv.Put([]byte("doc:doc"), record))

	_, err = s.GetRaw("doc")
	assert.ErrorIs(t, err, ErrCorrupted)

	require.NoError(t, kv.Put([]byte("doc:short"), []byte{1, 2, 3}))
	_, err = s.GetRaw("short")
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestPutRaw(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.PutRaw("flag", []byte("T")))
	var b bool
	require.NoError(t, s.Get("flag", &b))
	assert.True(t, b)

	err := s.PutRaw("bad", []byte("TT"))
	assert.ErrorIs(t, err, ubjson.ErrTrailingData)

	_, err = s.GetRaw("bad")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.PutRaw("", []byte("T")), ErrEmptyKey)
}

func TestRedundantCloseOption(t *testing.T) {
	data := []byte{'[', '#', 'i', 1, 'T', ']'}

	strict, _ := newStore(t)
	assert.Error(t, strict.PutRaw("a", data))

	lenient, _ := newStore(t, ubjson.WithRedundantClose())
	require.NoError(t, lenient.PutRaw("a", data))

	var out []bool
	require.NoError(t, lenient.Get("a", &out))
	assert.Equal(t, []bool{true}, out)
}

func TestKeysAndDelete(t *testing.T) {
	s, kv := newStore(t)
	require.NoError(t, kv.Put([]byte("other"), []byte("x")))

	require.NoError(t, s.PutBatch(map[string]any{
		"users/b": user{Name: "b"},
		"users/a": user{Name: "a"},
		"groups/x": []string{"a", "b"},
	}))

	keys, err := s.Keys("users/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/a", "users/b"}, keys)

	all, err := s.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"groups/x", "users/a", "users/b"}, all)

	require.NoError(t, s.Delete("users/a"))
	keys, err = s.Keys("users/")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/b"}, keys)
}

func TestPutBatchIsAtomic(t *testing.T) {
	s, _ := newStore(t)

	err := s.PutBatch(map[string]any{
		"ok":  1,
		"bad": func() {},
	})
	assert.ErrorIs(t, err, ubjson.ErrUnsupportedType)

	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
