package dump

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

func requireEqualListing(t *testing.T, expected, actual string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	if diff != "" {
		t.Fatalf("listing mismatch:\n%s", diff)
	}
}

func TestDump(t *testing.T) {
	data := []byte{
		'{', '#', 'i', 2,
		'i', 1, 'a',
		'[', '$', 'i', '#', 'i', 2, 1, 2,
		'i', 1, 'b',
		'[', 'T', 'Z', 'S', 'i', 1, 'x', 'U', 200, 'C', 'c', ']',
		'D', 0x3f, 0xf8, 0, 0, 0, 0, 0, 0,
		'H', 'i', 3, '1', '2', '3',
	}

	expected := `000000  { #2
000004    "a": [ $i #2
00000d      i 1
00000e      i 2
00000f    "b": [
000013      T
000014      Z
000015      S "x"
000019      U 200
00001b      C 'c'
00001e  D 1.5
000027  H 123
`
	actual, err := String(data)
	require.NoError(t, err)
	requireEqualListing(t, expected, actual)
}

func TestDumpRedundantClose(t *testing.T) {
	data := []byte{'[', '#', 'i', 1, 'F', ']'}

	_, err := String(data)
	assert.ErrorIs(t, err, ubjson.ErrInvalidMarker)

	actual, err := String(data, ubjson.WithRedundantClose())
	require.NoError(t, err)
	requireEqualListing(t, "000000  [ #1\n000004    F\n", actual)
}

func TestDumpTruncated(t *testing.T) {
	out, err := String([]byte{'T', 'S', 'i', 5, 'a'})
	assert.ErrorIs(t, err, ubjson.ErrEOF)
	assert.Equal(t, "000000  T\n", out)
}
