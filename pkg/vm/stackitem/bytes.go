package stackitem

import (
	"bytes"
	"encoding/hex"
	"math/big"
)

// ByteString is an immutable byte sequence.
type ByteString []byte

// NewByteArray constructs a ByteString, copying the input.
func NewByteArray(b []byte) *ByteString {
	if len(b) > MaxByteStringLen {
		panic(ErrTooBig)
	}
	cp := make(ByteString, len(b))
	copy(cp, b)
	return &cp
}

// Type implements Item.
func (ByteString) Type() Type { return ByteStringT }

// Value implements Item.
func (b *ByteString) Value() interface{} { return []byte(*b) }

// Bool implements Item: any non-all-zero byte string is truthy; empty is
// falsy.
func (b *ByteString) Bool() bool {
	for _, c := range *b {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryBytes implements Item.
func (b *ByteString) TryBytes() ([]byte, error) { return []byte(*b), nil }

// TryInteger implements Item.
func (b *ByteString) TryInteger() (*big.Int, error) {
	if len(*b) > 32 {
		return nil, ErrTooBig
	}
	return decodeInt(*b), nil
}

// Equals implements Item.
func (b *ByteString) Equals(o Item) bool {
	switch ov := o.(type) {
	case *ByteString:
		return bytes.Equal(*b, *ov)
	case *Buffer:
		return bytes.Equal(*b, *ov)
	default:
		return false
	}
}

// Convert implements Item.
func (b *ByteString) Convert(t Type) (Item, error) {
	switch t {
	case ByteStringT, AnyT:
		return b, nil
	case BufferT:
		return NewBuffer([]byte(*b)), nil
	case IntegerT:
		v, err := b.TryInteger()
		if err != nil {
			return nil, err
		}
		return NewBigInteger(v), nil
	case BooleanT:
		return Boolean(b.Bool()), nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (b *ByteString) String() string { return "ByteString(" + hex.EncodeToString(*b) + ")" }

// Buffer is a mutable byte sequence (distinct from ByteString so that
// MEMCPY/NEWBUFFER semantics can mutate in place without aliasing an
// immutable value).
type Buffer []byte

// NewBuffer constructs a Buffer, copying the input.
func NewBuffer(b []byte) *Buffer {
	if len(b) > MaxByteStringLen {
		panic(ErrTooBig)
	}
	cp := make(Buffer, len(b))
	copy(cp, b)
	return &cp
}

// Type implements Item.
func (Buffer) Type() Type { return BufferT }

// Value implements Item.
func (b *Buffer) Value() interface{} { return []byte(*b) }

// Bool implements Item.
func (b *Buffer) Bool() bool {
	for _, c := range *b {
		if c != 0 {
			return true
		}
	}
	return false
}

// TryBytes implements Item.
func (b *Buffer) TryBytes() ([]byte, error) { return []byte(*b), nil }

// TryInteger implements Item.
func (b *Buffer) TryInteger() (*big.Int, error) {
	if len(*b) > 32 {
		return nil, ErrTooBig
	}
	return decodeInt(*b), nil
}

// Equals implements Item: Buffer never compares equal by value, matching
// NeoVM's "Buffer is never EQUAL" rule (only reference identity, which
// isn't expressible here — callers should reject Buffer in EQUAL).
func (b *Buffer) Equals(Item) bool { return false }

// Convert implements Item.
func (b *Buffer) Convert(t Type) (Item, error) {
	switch t {
	case BufferT:
		return b, nil
	case ByteStringT:
		return NewByteArray([]byte(*b)), nil
	case IntegerT:
		v, err := b.TryInteger()
		if err != nil {
			return nil, err
		}
		return NewBigInteger(v), nil
	case BooleanT:
		return Boolean(b.Bool()), nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (b *Buffer) String() string { return "Buffer(" + hex.EncodeToString(*b) + ")" }
