// Package stackitem implements the NeoVM's tagged stack-item value domain
// (spec §3 "Stack item"): Null, Boolean, Integer, ByteString, Buffer,
// Array, Struct, Map, InteropInterface, Pointer. Compound items are
// reference-counted through a shared RefCounter to bound total live items.
package stackitem

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/n3ledger/n3core/pkg/util"
)

// MaxBigIntegerSizeBits bounds Integer items to 32 bytes two's-complement,
// per spec §3/§8.
const MaxBigIntegerSizeBits = 32 * 8

// MaxByteStringLen bounds any single ByteString/Buffer item's length.
const MaxByteStringLen = 1024 * 1024 * 64

// ErrTooBig is returned when an item would exceed a hard size limit.
var ErrTooBig = errors.New("stackitem: item too big")

// ErrInvalidConversion is returned by Convert when no lossless conversion
// exists between two types.
var ErrInvalidConversion = errors.New("stackitem: invalid type conversion")

// Item is the common interface every stack-item variant implements.
type Item interface {
	// Type reports this item's variant tag.
	Type() Type
	// Value returns the item's underlying Go representation (varies by
	// variant: *big.Int, bool, []byte, []Item, ...).
	Value() interface{}
	// Bool converts to a boolean per NeoVM truthiness rules.
	Bool() bool
	// TryBytes attempts a byte-string conversion.
	TryBytes() ([]byte, error)
	// TryInteger attempts a big.Int conversion.
	TryInteger() (*big.Int, error)
	// Equals reports equality as the EQUAL opcode sees it: primitive
	// variants compare by value, compound variants and Interop/Pointer by
	// reference identity, each in its own Equals method.
	Equals(Item) bool
	// Convert attempts to produce an equivalent item of the requested type.
	Convert(Type) (Item, error)
	fmt.Stringer
}

// Null represents the VM's Any/Null value.
type Null struct{}

// Type implements Item.
func (Null) Type() Type { return AnyT }

// Value implements Item.
func (Null) Value() interface{} { return nil }

// Bool implements Item: null is always falsy.
func (Null) Bool() bool { return false }

// TryBytes implements Item.
func (Null) TryBytes() ([]byte, error) { return nil, errors.New("stackitem: null has no bytes") }

// TryInteger implements Item.
func (Null) TryInteger() (*big.Int, error) { return nil, errors.New("stackitem: null has no integer") }

// Equals implements Item.
func (Null) Equals(o Item) bool { _, ok := o.(Null); return ok }

// Convert implements Item.
func (n Null) Convert(t Type) (Item, error) {
	if t == AnyT || t == PointerT || t == InteropInterfaceT || t == ArrayT || t == StructT || t == MapT {
		return n, nil
	}
	return nil, ErrInvalidConversion
}

// String implements fmt.Stringer.
func (Null) String() string { return "Null" }

// Boolean wraps a bool.
type Boolean bool

// Type implements Item.
func (Boolean) Type() Type { return BooleanT }

// Value implements Item.
func (b Boolean) Value() interface{} { return bool(b) }

// Bool implements Item.
func (b Boolean) Bool() bool { return bool(b) }

// TryBytes implements Item.
func (b Boolean) TryBytes() ([]byte, error) {
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

// TryInteger implements Item.
func (b Boolean) TryInteger() (*big.Int, error) {
	if b {
		return big.NewInt(1), nil
	}
	return big.NewInt(0), nil
}

// Equals implements Item.
func (b Boolean) Equals(o Item) bool {
	ob, ok := o.(Boolean)
	return ok && b == ob
}

// Convert implements Item.
func (b Boolean) Convert(t Type) (Item, error) {
	switch t {
	case BooleanT:
		return b, nil
	case IntegerT:
		v, _ := b.TryInteger()
		return NewBigInteger(v), nil
	case ByteStringT:
		v, _ := b.TryBytes()
		return NewByteArray(v), nil
	case AnyT:
		return b, nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (b Boolean) String() string { return "Boolean" }

// Integer wraps an arbitrary-precision signed integer bounded to 32 bytes
// two's-complement, per spec §3.
type Integer struct {
	value *big.Int
}

// NewBigInteger constructs an Integer, panicking if v exceeds the 32-byte
// bound. Opcode handlers call it directly on arithmetic results; during
// execution vm.VM.Step recovers that panic and faults the VM.
func NewBigInteger(v *big.Int) *Integer {
	if v.BitLen() > MaxBigIntegerSizeBits {
		panic(ErrTooBig)
	}
	return &Integer{value: new(big.Int).Set(v)}
}

// Make constructs an Item from a generic Go value: bool, integer types,
// []byte, string, or nil.
func Make(v interface{}) Item {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Boolean(val)
	case []byte:
		return NewByteArray(val)
	case string:
		return NewByteArray([]byte(val))
	case *big.Int:
		return NewBigInteger(val)
	case int:
		return NewBigInteger(big.NewInt(int64(val)))
	case int64:
		return NewBigInteger(big.NewInt(val))
	case uint32:
		return NewBigInteger(new(big.Int).SetUint64(uint64(val)))
	case uint64:
		return NewBigInteger(new(big.Int).SetUint64(val))
	case Item:
		return val
	default:
		panic(fmt.Sprintf("stackitem: cannot make item from %T", v))
	}
}

// Type implements Item.
func (Integer) Type() Type { return IntegerT }

// Value implements Item.
func (i *Integer) Value() interface{} { return i.value }

// Bool implements Item: zero is falsy.
func (i *Integer) Bool() bool { return i.value.Sign() != 0 }

// TryBytes implements Item: minimal two's-complement little-endian
// encoding.
func (i *Integer) TryBytes() ([]byte, error) {
	return encodeInt(i.value), nil
}

// TryInteger implements Item.
func (i *Integer) TryInteger() (*big.Int, error) { return i.value, nil }

// Equals implements Item.
func (i *Integer) Equals(o Item) bool {
	oi, ok := o.(*Integer)
	return ok && i.value.Cmp(oi.value) == 0
}

// Convert implements Item.
func (i *Integer) Convert(t Type) (Item, error) {
	switch t {
	case IntegerT, AnyT:
		return i, nil
	case BooleanT:
		return Boolean(i.Bool()), nil
	case ByteStringT:
		b, _ := i.TryBytes()
		return NewByteArray(b), nil
	case BufferT:
		b, _ := i.TryBytes()
		return NewBuffer(b), nil
	default:
		return nil, ErrInvalidConversion
	}
}

// String implements fmt.Stringer.
func (i *Integer) String() string { return "Integer" }

// encodeInt produces the minimal two's-complement little-endian encoding of
// v, matching NeoVM's ByteString conversion of integers. Every valid
// Integer's magnitude fits the 256-bit word holiman/uint256 provides, so
// the two's-complement packing runs as one fixed-width add/wrap instead of
// math/big's variable-length byte-twiddling.
func encodeInt(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{}
	}
	word := util.FromBig(v)
	arr := word.Bytes32() // big-endian, fixed 32 bytes
	b := arr[:]
	reverse(b)
	return trimTwosComplement(b)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// trimTwosComplement drops redundant high-order bytes from a little-endian
// two's-complement encoding, stopping as soon as removing the next byte
// would flip the represented sign.
func trimTwosComplement(b []byte) []byte {
	for len(b) > 1 {
		last := b[len(b)-1]
		prev := b[len(b)-2]
		if last == 0x00 && prev&0x80 == 0 {
			b = b[:len(b)-1]
			continue
		}
		if last == 0xFF && prev&0x80 != 0 {
			b = b[:len(b)-1]
			continue
		}
		break
	}
	if len(b) == 1 && b[0] == 0 {
		return []byte{}
	}
	return b
}

// decodeInt parses a minimal two's-complement little-endian encoding,
// sign-extending it into a 256-bit word before unpacking via util.ToBig.
func decodeInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	neg := b[len(b)-1]&0x80 != 0
	var arr [32]byte
	if neg {
		for i := range arr {
			arr[i] = 0xFF
		}
	}
	copy(arr[:], b)
	reverse(arr[:])
	word := new(uint256.Int).SetBytes32(arr[:])
	return util.ToBig(word)
}
