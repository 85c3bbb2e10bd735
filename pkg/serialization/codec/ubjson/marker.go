package ubjson

// Marker is the single leading byte that identifies the shape of what follows.
type Marker byte

const (
	Null        Marker = 'Z'
	NoOp        Marker = 'N'
	True        Marker = 'T'
	False       Marker = 'F'
	Int8        Marker = 'i'
	Uint8       Marker = 'U'
	Int16       Marker = 'I'
	Int32       Marker = 'l'
	Int64       Marker = 'L'
	Float32     Marker = 'd'
	Float64     Marker = 'D'
	Number      Marker = 'H'
	Char        Marker = 'C'
	String      Marker = 'S'
	ArrayStart  Marker = '['
	ArrayEnd    Marker = ']'
	ObjectStart Marker = '{'
	ObjectEnd   Marker = '}'
	Length      Marker = '#'
	OfType      Marker = '$'
)

// ParseMarker maps a byte to its marker. Bytes outside the grammar yield ErrInvalidMarker.
func ParseMarker(b byte) (Marker, error) {
	m := Marker(b)
	if !m.Valid() {
		return 0, ErrInvalidMarker
	}
	return m, nil
}

func (m Marker) Valid() bool {
	switch m {
	case Null, NoOp, True, False,
		Int8, Uint8, Int16, Int32, Int64,
		Float32, Float64, Number, Char, String,
		ArrayStart, ArrayEnd, ObjectStart, ObjectEnd,
		Length, OfType:
		return true
	default:
		return false
	}
}

// IsInteger reports whether m is one of the fixed width integer markers.
func (m Marker) IsInteger() bool {
	switch m {
	case Int8, Uint8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// Size returns the payload width of fixed width markers and 0 for everything else.
func (m Marker) Size() int {
	switch m {
	case Int8, Uint8, Char:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (m Marker) String() string {
	return string(rune(m))
}
