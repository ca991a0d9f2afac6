package stackitem

// Type identifies the runtime variant of a stack Item, per spec §3.
type Type byte

// The NeoVM stack item type tags.
const (
	AnyT             Type = 0x00
	PointerT         Type = 0x10
	BooleanT         Type = 0x20
	IntegerT         Type = 0x21
	ByteStringT      Type = 0x28
	BufferT          Type = 0x30
	ArrayT           Type = 0x40
	StructT          Type = 0x41
	MapT             Type = 0x48
	InteropInterfaceT Type = 0x60
)

// String returns the type's mnemonic name.
func (t Type) String() string {
	switch t {
	case AnyT:
		return "Any"
	case PointerT:
		return "Pointer"
	case BooleanT:
		return "Boolean"
	case IntegerT:
		return "Integer"
	case ByteStringT:
		return "ByteString"
	case BufferT:
		return "Buffer"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case MapT:
		return "Map"
	case InteropInterfaceT:
		return "InteropInterface"
	default:
		return "Unknown"
	}
}

// IsValid reports whether t is a known type tag.
func (t Type) IsValid() bool {
	switch t {
	case AnyT, PointerT, BooleanT, IntegerT, ByteStringT, BufferT, ArrayT, StructT, MapT, InteropInterfaceT:
		return true
	default:
		return false
	}
}
