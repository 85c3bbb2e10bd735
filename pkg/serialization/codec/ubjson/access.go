package ubjson

import (
	"fmt"
)

// container holds the framing state shared by ArrayAccess and ObjectAccess.
//
// Counted containers (with or without an of-type hint) end after length
// elements. Delimited containers end at their end marker, which is checked both
// before each element and opportunistically right after it.
type container struct {
	d         *Decoder
	remaining int
	counted   bool
	ofType    Marker
	typed     bool
	end       Marker
	done      bool
}

func newContainer(d *Decoder, f framing, end Marker) container {
	return container{
		d:         d,
		remaining: f.length,
		counted:   f.counted,
		ofType:    f.ofType,
		typed:     f.typed,
		end:       end,
	}
}

// begin reports whether another element follows, consuming the end marker of a
// delimited container when it is next.
func (c *container) begin() (bool, error) {
	if c.done {
		return false, nil
	}
	if c.counted {
		if c.remaining == 0 {
			c.done = true
			return false, nil
		}
		c.remaining--
		return true, nil
	}
	closed, err := c.d.consumeIf(c.end)
	if err != nil {
		return false, err
	}
	if closed {
		c.done = true
		return false, nil
	}
	return true, nil
}

// finish runs after the last byte of an element. Counted containers that just
// ran out may still be closed redundantly; delimited containers close here if
// the end marker follows immediately.
func (c *container) finish() error {
	if c.counted {
		if c.remaining == 0 {
			c.done = true
			c.d.consumeRedundant(c.end)
		}
		return nil
	}
	closed, err := c.d.consumeIf(c.end)
	if err != nil {
		return err
	}
	if closed {
		c.done = true
	}
	return nil
}

func (c *container) hintValue() {
	if c.typed {
		c.d.setHint(c.ofType)
	}
}

// Len returns the declared element count, if any.
func (c *container) Len() (int, bool) {
	return c.remaining, c.counted
}

// OfType returns the element marker of a typed container.
func (c *container) OfType() (Marker, bool) {
	return c.ofType, c.typed
}

// Done reports whether the container has been read to its end.
func (c *container) Done() bool {
	return c.done
}

// ArrayAccess walks the elements of an array.
type ArrayAccess struct {
	container
}

func (d *Decoder) DecodeArray() (*ArrayAccess, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return nil, err
	}
	if m != ArrayStart {
		return nil, expected(ArrayStart)
	}
	return d.arrayAfterStart()
}

func (d *Decoder) arrayAfterStart() (*ArrayAccess, error) {
	f, err := d.readFraming()
	if err != nil {
		return nil, err
	}
	if err := d.checkCount(f, 1); err != nil {
		return nil, err
	}
	return &ArrayAccess{container: newContainer(d, f, ArrayEnd)}, nil
}

// Next decodes one element with fn and reports whether there was one.
func (a *ArrayAccess) Next(fn func(*Decoder) error) (bool, error) {
	ok, err := a.begin()
	if err != nil || !ok {
		return false, err
	}
	a.hintValue()
	err = fn(a.d)
	a.d.clearHint()
	if err != nil {
		return false, err
	}
	return true, a.finish()
}

// Finish skips any elements left unread.
func (a *ArrayAccess) Finish() error {
	for {
		ok, err := a.Next(func(d *Decoder) error { return d.Skip() })
		if err != nil || !ok {
			return err
		}
	}
}

// ObjectAccess walks the entries of an object. Keys are always read as strings;
// an of-type hint applies to values only.
type ObjectAccess struct {
	container
	pendingValue bool
}

func (d *Decoder) DecodeObject() (*ObjectAccess, error) {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return nil, err
	}
	if m != ObjectStart {
		return nil, expected(ObjectStart)
	}
	return d.objectAfterStart()
}

func (d *Decoder) objectAfterStart() (*ObjectAccess, error) {
	f, err := d.readFraming()
	if err != nil {
		return nil, err
	}
	if err := d.checkCount(f, 2); err != nil {
		return nil, err
	}
	return &ObjectAccess{container: newContainer(d, f, ObjectEnd)}, nil
}

// NextKey decodes the next key with fn and reports whether there was one.
// A successful NextKey must be followed by NextValue.
func (o *ObjectAccess) NextKey(fn func(*Decoder) error) (bool, error) {
	if o.pendingValue {
		return false, Errorf("object key requested before the previous value")
	}
	ok, err := o.begin()
	if err != nil || !ok {
		return false, err
	}
	o.d.setHint(String)
	err = fn(o.d)
	o.d.clearHint()
	if err != nil {
		return false, err
	}
	o.pendingValue = true
	return true, nil
}

// NextKeyString is NextKey for callers that just want the key as a string.
func (o *ObjectAccess) NextKeyString() (string, bool, error) {
	var key string
	ok, err := o.NextKey(func(d *Decoder) error {
		var err error
		key, err = d.DecodeString()
		return err
	})
	return key, ok, err
}

func (o *ObjectAccess) NextValue(fn func(*Decoder) error) error {
	if !o.pendingValue {
		return Errorf("object value requested without a key")
	}
	o.pendingValue = false
	o.hintValue()
	err := fn(o.d)
	o.d.clearHint()
	if err != nil {
		return err
	}
	return o.finish()
}

// NextEntry decodes one key and its value.
func (o *ObjectAccess) NextEntry(key, value func(*Decoder) error) (bool, error) {
	ok, err := o.NextKey(key)
	if err != nil || !ok {
		return false, err
	}
	return true, o.NextValue(value)
}

// Finish skips any entries left unread.
func (o *ObjectAccess) Finish() error {
	if o.pendingValue {
		if err := o.NextValue(func(d *Decoder) error { return d.Skip() }); err != nil {
			return err
		}
	}
	for {
		ok, err := o.NextEntry(func(d *Decoder) error { return d.Skip() }, func(d *Decoder) error { return d.Skip() })
		if err != nil || !ok {
			return err
		}
	}
}

// VariantAccess gives access to the payload of a tagged variant.
type VariantAccess struct {
	d        *Decoder
	bare     bool
	ofType   Marker
	typed    bool
	consumed bool
}

// DecodeVariant reads a variant name and hands the payload to fn. A bare string is
// a unit variant; a single entry object maps the name to the payload.
func (d *Decoder) DecodeVariant(fn func(name string, v *VariantAccess) error) error {
	m, err := d.takeOrReadMarker()
	if err != nil {
		return err
	}
	switch m {
	case String:
		b, err := d.readStr()
		if err != nil {
			return err
		}
		return fn(string(b), &VariantAccess{d: d, bare: true})
	case ObjectStart:
		f, err := d.readFraming()
		if err != nil {
			return err
		}
		if f.counted && f.length != 1 {
			return fmt.Errorf(ErrVariantEntries, ErrInvalidMarker, f.length)
		}
		d.setHint(String)
		name, err := d.DecodeString()
		if err != nil {
			return err
		}
		v := &VariantAccess{d: d, ofType: f.ofType, typed: f.typed}
		if err := fn(name, v); err != nil {
			return err
		}
		if !v.consumed {
			return Errorf("payload of variant %q was not decoded", name)
		}
		if f.counted {
			d.consumeRedundant(ObjectEnd)
			return nil
		}
		end, err := d.readMarker()
		if err != nil {
			return err
		}
		if end != ObjectEnd {
			return expected(ObjectEnd)
		}
		return nil
	default:
		return expected(String, ObjectStart)
	}
}

// IsUnit reports whether the variant was written as a bare name.
func (v *VariantAccess) IsUnit() bool {
	return v.bare
}

// Unit accepts a payload-less variant. Object payloads have no unit form.
func (v *VariantAccess) Unit() error {
	if !v.bare {
		return ErrInvalidMarker
	}
	return nil
}

func (v *VariantAccess) payload() error {
	if v.bare {
		return fmt.Errorf("%w: unit variant has no payload", ErrInvalidMarker)
	}
	if v.consumed {
		return Errorf("variant payload already decoded")
	}
	v.consumed = true
	if v.typed {
		v.d.setHint(v.ofType)
	}
	return nil
}

func (v *VariantAccess) Newtype(fn func(*Decoder) error) error {
	if err := v.payload(); err != nil {
		return err
	}
	err := fn(v.d)
	v.d.clearHint()
	return err
}

func (v *VariantAccess) Tuple(fn func(*ArrayAccess) error) error {
	if err := v.payload(); err != nil {
		return err
	}
	a, err := v.d.DecodeArray()
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	return a.Finish()
}

func (v *VariantAccess) Struct(fn func(*ObjectAccess) error) error {
	if err := v.payload(); err != nil {
		return err
	}
	o, err := v.d.DecodeObject()
	if err != nil {
		return err
	}
	if err := fn(o); err != nil {
		return err
	}
	return o.Finish()
}
