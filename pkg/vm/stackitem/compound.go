package stackitem

import (
	"errors"
	"math/big"
)

// MaxCompoundItems bounds the number of direct elements any single
// Array/Struct/Map may hold.
const MaxCompoundItems = 2048

// ErrReadOnly is returned by mutators on a item marked read-only (not
// currently surfaced on any variant here, reserved for future use by
// interop boundary copies).
var ErrReadOnly = errors.New("stackitem: item is read-only")

// Array is an ordered, mutable, reference-type list of items.
type Array struct {
	value []Item
}

// NewArray constructs an Array from the given items (no copy of the slice
// header; callers should not mutate the passed slice afterwards).
func NewArray(items []Item) *Array {
	return &Array{value: items}
}

// Type implements Item.
func (*Array) Type() Type { return ArrayT }

// Value implements Item.
func (a *Array) Value() interface{} { return a.value }

// Bool implements Item: arrays are always truthy.
func (*Array) Bool() bool { return true }

// TryBytes implements Item.
func (*Array) TryBytes() ([]byte, error) { return nil, errors.New("stackitem: array has no bytes") }

// TryInteger implements Item.
func (*Array) TryInteger() (*big.Int, error) {
	return nil, errors.New("stackitem: array has no integer")
}

// Equals implements Item: compound types compare by reference identity,
// not structural equality. The VM's EQUAL opcode calls this for any pair
// of operands.
func (a *Array) Equals(o Item) bool {
	oa, ok := o.(*Array)
	return ok && a == oa
}

// Convert implements Item.
func (a *Array) Convert(t Type) (Item, error) {
	switch t {
	case ArrayT, AnyT:
		return a, nil
	case StructT:
		return NewStruct(append([]Item(nil), a.value...)), nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (*Array) String() string { return "Array" }

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.value) }

// Append adds an item, enforcing MaxCompoundItems.
func (a *Array) Append(i Item) error {
	if len(a.value) >= MaxCompoundItems {
		return ErrTooBig
	}
	a.value = append(a.value, i)
	return nil
}

// Remove deletes the element at index i, shifting later elements down.
func (a *Array) Remove(i int) {
	a.value = append(a.value[:i], a.value[i+1:]...)
}

// Reverse reverses the element order in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.value)-1; i < j; i, j = i+1, j-1 {
		a.value[i], a.value[j] = a.value[j], a.value[i]
	}
}

// Struct behaves like Array but is a distinct type used for value-style
// compounds (NEWSTRUCT); notably EQUAL/structural comparisons in higher
// layers may treat Struct contents structurally where Array never does,
// matching the protocol's struct-by-value convention for NEP-17 returns.
type Struct struct {
	Array
}

// NewStruct constructs a Struct from the given items.
func NewStruct(items []Item) *Struct {
	return &Struct{Array{value: items}}
}

// Type implements Item.
func (*Struct) Type() Type { return StructT }

// Clone performs a deep copy of the struct and any nested structs (NeoVM's
// struct-by-value CALL argument semantics).
func (s *Struct) Clone() *Struct {
	items := make([]Item, len(s.value))
	for i, it := range s.value {
		if sub, ok := it.(*Struct); ok {
			items[i] = sub.Clone()
		} else {
			items[i] = it
		}
	}
	return NewStruct(items)
}

// Convert implements Item.
func (s *Struct) Convert(t Type) (Item, error) {
	switch t {
	case StructT, AnyT:
		return s, nil
	case ArrayT:
		return NewArray(append([]Item(nil), s.value...)), nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (*Struct) String() string { return "Struct" }

// MapElement is one ordered key/value pair of a Map.
type MapElement struct {
	Key   Item
	Value Item
}

// Map is an insertion-ordered associative array keyed by primitive items.
type Map struct {
	elems []MapElement
}

// NewMap constructs an empty Map.
func NewMap() *Map {
	return &Map{}
}

// Type implements Item.
func (*Map) Type() Type { return MapT }

// Value implements Item.
func (m *Map) Value() interface{} { return m.elems }

// Bool implements Item.
func (*Map) Bool() bool { return true }

// TryBytes implements Item.
func (*Map) TryBytes() ([]byte, error) { return nil, errors.New("stackitem: map has no bytes") }

// TryInteger implements Item.
func (*Map) TryInteger() (*big.Int, error) { return nil, errors.New("stackitem: map has no integer") }

// Equals implements Item: reference identity only.
func (m *Map) Equals(o Item) bool {
	om, ok := o.(*Map)
	return ok && m == om
}

// Convert implements Item.
func (m *Map) Convert(t Type) (Item, error) {
	if t == MapT || t == AnyT {
		return m, nil
	}
	return nil, ErrInvalidConversion
}

// String implements fmt.Stringer.
func (*Map) String() string { return "Map" }

// mapKey returns a comparable representation for a primitive key item.
func mapKey(k Item) (string, error) {
	b, err := k.TryBytes()
	if err != nil {
		return "", errors.New("stackitem: invalid map key type")
	}
	return string(k.Type()) + string(b), nil
}

// Index returns the position of key in insertion order, or -1.
func (m *Map) Index(key Item) int {
	kk, err := mapKey(key)
	if err != nil {
		return -1
	}
	for i, e := range m.elems {
		ek, _ := mapKey(e.Key)
		if ek == kk {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (m *Map) Has(key Item) bool { return m.Index(key) >= 0 }

// Get returns the value for key, or nil if absent.
func (m *Map) Get(key Item) Item {
	if i := m.Index(key); i >= 0 {
		return m.elems[i].Value
	}
	return nil
}

// Set inserts or updates key -> value, preserving original insertion
// position on update, appending on insert.
func (m *Map) Set(key, value Item) error {
	if i := m.Index(key); i >= 0 {
		m.elems[i].Value = value
		return nil
	}
	if len(m.elems) >= MaxCompoundItems {
		return ErrTooBig
	}
	m.elems = append(m.elems, MapElement{Key: key, Value: value})
	return nil
}

// Delete removes key if present.
func (m *Map) Delete(key Item) {
	if i := m.Index(key); i >= 0 {
		m.elems = append(m.elems[:i], m.elems[i+1:]...)
	}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.elems) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Key
	}
	return out
}

// Values returns the values in insertion order.
func (m *Map) Values() []Item {
	out := make([]Item, len(m.elems))
	for i, e := range m.elems {
		out[i] = e.Value
	}
	return out
}
