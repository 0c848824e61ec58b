package x86_64

// AddressKind tags the variant held by an Address value.
type AddressKind int

const (
	// AddressDirect names a register operand that is not a memory access
	// at all. No constructor in this package builds an Address of this
	// kind, and addressField rejects it as an unrecognized address kind.
	AddressDirect AddressKind = iota
	// AddressIndirect is [base], a bare register indirection with no
	// displacement or index.
	AddressIndirect
	// AddressIndexDisp8 is [base + disp8], a register plus an 8-bit signed
	// displacement.
	AddressIndexDisp8
	// AddressIndexBase is [base + index], two registers summed with an
	// implicit scale of 1.
	AddressIndexBase
	// AddressScaledIndex is [base + index*scale], a base register plus a
	// scaled index register.
	AddressScaledIndex
	// AddressRIPRelative is [rip + disp32], computed at link time from the
	// distance to a named label.
	AddressRIPRelative
)

// Scale is the SIB scale factor applied to an index register.
type Scale byte

const (
	Times1 Scale = 0
	Times2 Scale = 1
	Times4 Scale = 2
	Times8 Scale = 3
)

func scaleOf(n int) (Scale, bool) {
	switch n {
	case 1:
		return Times1, true
	case 2:
		return Times2, true
	case 4:
		return Times4, true
	case 8:
		return Times8, true
	default:
		return 0, false
	}
}

// Address is the closed sum type of memory operand shapes described in the
// data model: a plain register indirection, a register plus 8-bit
// displacement, a base plus index register, a base plus scaled index
// register, or a RIP-relative reference to a label.
type Address struct {
	kind  AddressKind
	base  R64
	index R64
	disp8 int8
	scale Scale
	label string
}

// Indirect builds [base].
func Indirect(base R64) Address {
	return Address{kind: AddressIndirect, base: base}
}

// IndexDisp8 builds [base + disp8].
func IndexDisp8(base R64, disp8 int8) Address {
	return Address{kind: AddressIndexDisp8, base: base, disp8: disp8}
}

// IndexBase builds [base + index], with an implicit scale of 1.
func IndexBase(base, index R64) Address {
	return Address{kind: AddressIndexBase, base: base, index: index}
}

// ScaledIndex builds [base + index*scale]. scale must be 1, 2, 4 or 8.
func ScaledIndex(base, index R64, scale int) (Address, bool) {
	s, ok := scaleOf(scale)
	if !ok {
		return Address{}, false
	}
	return Address{kind: AddressScaledIndex, base: base, index: index, scale: s}, true
}

// RIPRelative builds [rip + disp32] pointing at label, resolved once the
// label's final address relative to the next instruction is known.
func RIPRelative(label string) Address {
	return Address{kind: AddressRIPRelative, label: label}
}

// Kind reports which variant the address holds.
func (a Address) Kind() AddressKind { return a.kind }

// Base returns the base register for Indirect, IndexDisp8, IndexBase and
// ScaledIndex addresses.
func (a Address) Base() R64 { return a.base }

// Index returns the index register for IndexBase and ScaledIndex
// addresses.
func (a Address) Index() R64 { return a.index }

// Disp8 returns the displacement for an IndexDisp8 address.
func (a Address) Disp8() int8 { return a.disp8 }

// ScaleFactor returns the SIB scale field for a ScaledIndex address.
func (a Address) ScaleFactor() Scale { return a.scale }

// Label returns the target label for a RIPRelative address.
func (a Address) Label() string { return a.label }
