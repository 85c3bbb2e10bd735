// Package dump renders UBJSON as an annotated listing: one line per value with
// its input offset, the markers it was read from and its payload.
package dump

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// Dump writes the listing of every top-level value in data to w.
func Dump(w io.Writer, data []byte, opts ...ubjson.DecoderOption) error {
	bw := bufio.NewWriter(w)
	d := ubjson.NewDecoder(data, opts...)
	for d.Remaining() > 0 {
		if err := (&lister{w: bw}).value(d, ""); err != nil {
			_ = bw.Flush()
			return fmt.Errorf("at offset %d: %w", d.Offset(), err)
		}
	}
	return bw.Flush()
}

// String returns the listing of data.
func String(data []byte, opts ...ubjson.DecoderOption) (string, error) {
	var sb strings.Builder
	err := Dump(&sb, data, opts...)
	return sb.String(), err
}

type lister struct {
	w      *bufio.Writer
	depth  int
	label  string
	offset int
}

func (l *lister) value(d *ubjson.Decoder, label string) error {
	child := &lister{w: l.w, depth: l.depth, label: label, offset: d.Offset()}
	return d.DecodeAny(child)
}

func (l *lister) line(format string, args ...any) error {
	_, err := fmt.Fprintf(l.w, "%06x  %s%s%s\n", l.offset, strings.Repeat("  ", l.depth), l.label, fmt.Sprintf(format, args...))
	return err
}

func (l *lister) VisitNull() error         { return l.line("Z") }
func (l *lister) VisitNoOp() error         { return l.line("N") }
func (l *lister) VisitUint8(v uint8) error { return l.line("U %d", v) }
func (l *lister) VisitChar(c rune) error   { return l.line("C %q", c) }

func (l *lister) VisitBool(v bool) error {
	if v {
		return l.line("T")
	}
	return l.line("F")
}

func (l *lister) VisitInt(v int64, m ubjson.Marker) error {
	return l.line("%s %d", m, v)
}

func (l *lister) VisitFloat(v float64, m ubjson.Marker) error {
	bits := 64
	if m == ubjson.Float32 {
		bits = 32
	}
	return l.line("%s %s", m, strconv.FormatFloat(v, 'g', -1, bits))
}

func (l *lister) VisitNumber(digits string) error {
	return l.line("H %s", digits)
}

func (l *lister) VisitString(b []byte) error {
	return l.line("S %q", b)
}

func framing(start ubjson.Marker, n int, counted bool, of ubjson.Marker, typed bool) string {
	switch {
	case typed:
		return fmt.Sprintf("%s $%s #%d", start, of, n)
	case counted:
		return fmt.Sprintf("%s #%d", start, n)
	default:
		return start.String()
	}
}

func (l *lister) VisitArray(a *ubjson.ArrayAccess) error {
	n, counted := a.Len()
	of, typed := a.OfType()
	if err := l.line("%s", framing(ubjson.ArrayStart, n, counted, of, typed)); err != nil {
		return err
	}
	inner := &lister{w: l.w, depth: l.depth + 1}
	for {
		ok, err := a.Next(func(d *ubjson.Decoder) error { return inner.value(d, "") })
		if err != nil || !ok {
			return err
		}
	}
}

func (l *lister) VisitObject(o *ubjson.ObjectAccess) error {
	n, counted := o.Len()
	of, typed := o.OfType()
	if err := l.line("%s", framing(ubjson.ObjectStart, n, counted, of, typed)); err != nil {
		return err
	}
	inner := &lister{w: l.w, depth: l.depth + 1}
	for {
		var key string
		var keyOffset int
		ok, err := o.NextKey(func(d *ubjson.Decoder) error {
			keyOffset = d.Offset()
			var err error
			key, err = d.DecodeString()
			return err
		})
		if err != nil || !ok {
			return err
		}
		err = o.NextValue(func(d *ubjson.Decoder) error {
			child := &lister{w: l.w, depth: inner.depth, label: strconv.Quote(key) + ": ", offset: keyOffset}
			return d.DecodeAny(child)
		})
		if err != nil {
			return err
		}
	}
}
