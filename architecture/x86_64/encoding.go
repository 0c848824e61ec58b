package x86_64

import (
	"fmt"

	"github.com/keurnel/bootimg/internal/asmerr"
	"github.com/keurnel/bootimg/internal/segment"
)

// Encoding is the machine-code form of a single instruction: the bytes to
// append to a segment, plus an optional pending reference into those bytes
// (a RIP-relative displacement or a jump/call target) that the assembler
// must register with the segment once the bytes are placed.
type Encoding struct {
	Bytes []byte

	HasReference  bool
	RefOffset     int // offset within Bytes where the reference field begins
	RefLabel      string
	RefFormat     segment.ReferenceFormat
}

// rex builds a REX prefix from its four bit fields. It returns nil when
// none of the bits are set, since a bare 0x40 changes nothing that these
// instruction forms rely on and the teacher's own encoder never emits one
// gratuitously.
func rex(w, r, x, b bool) []byte {
	if !w && !r && !x && !b {
		return nil
	}
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return []byte{v}
}

func modrmByte(mod, reg, rm byte) byte {
	return (mod&0x3)<<6 | (reg&0x7)<<3 | (rm & 0x7)
}

func sibByte(scale Scale, index, base byte) byte {
	return (byte(scale)&0x3)<<6 | (index&0x7)<<3 | (base & 0x7)
}

// modForBase reports the ModR/M (or SIB) mod field and displacement length
// needed to address base with no explicit displacement: RBP/R13 cannot be
// addressed with mod=00 (that encoding means "no base, disp32" instead), so
// those two registers are promoted to mod=01 with an explicit zero disp8.
func modForBase(base R64) (mod byte, dispLen int) {
	if base.IsRBP() {
		return 1, 1
	}
	return 0, 0
}

func zeros(n int) []byte {
	return make([]byte, n)
}

// addressField computes the ModR/M byte, optional SIB byte, and
// displacement bytes for a memory operand sharing the ModR/M reg field
// with reg (the other operand, or an opcode-extension digit). It also
// reports whether the base/index registers require the REX.B/REX.X bits,
// and the label a RIP-relative operand needs resolved as a reference.
func addressField(addr Address, reg byte) (modrm byte, sib []byte, disp []byte, rexX, rexB bool, ripLabel string, err error) {
	switch addr.Kind() {
	case AddressIndirect:
		base := addr.Base()
		mod, dispLen := modForBase(base)
		if base.IsRSP() {
			s := sibByte(Times1, 0b100, base.Low())
			return modrmByte(mod, reg, 0b100), []byte{s}, zeros(dispLen), false, base.Extended(), "", nil
		}
		return modrmByte(mod, reg, base.Low()), nil, zeros(dispLen), false, base.Extended(), "", nil

	case AddressIndexDisp8:
		base := addr.Base()
		d := []byte{byte(addr.Disp8())}
		if base.IsRSP() {
			s := sibByte(Times1, 0b100, base.Low())
			return modrmByte(1, reg, 0b100), []byte{s}, d, false, base.Extended(), "", nil
		}
		return modrmByte(1, reg, base.Low()), nil, d, false, base.Extended(), "", nil

	case AddressIndexBase:
		base, index := addr.Base(), addr.Index()
		if index.IsRSP() {
			return 0, nil, nil, false, false, "", fmt.Errorf("%w: rsp/r12 cannot be used as a SIB index", asmerr.ErrInvalidOperand)
		}
		mod, dispLen := modForBase(base)
		s := sibByte(Times1, index.Low(), base.Low())
		return modrmByte(mod, reg, 0b100), []byte{s}, zeros(dispLen), index.Extended(), base.Extended(), "", nil

	case AddressScaledIndex:
		base, index := addr.Base(), addr.Index()
		if index.IsRSP() {
			return 0, nil, nil, false, false, "", fmt.Errorf("%w: rsp/r12 cannot be used as a SIB index", asmerr.ErrInvalidOperand)
		}
		mod, dispLen := modForBase(base)
		s := sibByte(addr.ScaleFactor(), index.Low(), base.Low())
		return modrmByte(mod, reg, 0b100), []byte{s}, zeros(dispLen), index.Extended(), base.Extended(), "", nil

	case AddressRIPRelative:
		return modrmByte(0, reg, 0b101), nil, zeros(4), false, false, addr.Label(), nil

	default:
		return 0, nil, nil, false, false, "", fmt.Errorf("%w: unrecognized address kind", asmerr.ErrInvalidOperand)
	}
}

// build assembles prefixes, REX, opcode, ModR/M/SIB/disp and an immediate
// or trailing reference into a single Encoding. ripLabel/ripFormat, when
// ripLabel is non-empty, mark the displacement bytes just written as a
// pending reference; trailingLabel/trailingFormat do the same for bytes
// appended after the displacement (jump/call targets, absolute pointers).
func build(prefixes []byte, rexBytes []byte, opcode []byte, modrm []byte, sib []byte, disp []byte, ripLabel string, ripFormat segment.ReferenceFormat, imm []byte, trailingLabel string, trailingFormat segment.ReferenceFormat) *Encoding {
	e := &Encoding{}
	e.Bytes = append(e.Bytes, prefixes...)
	e.Bytes = append(e.Bytes, rexBytes...)
	e.Bytes = append(e.Bytes, opcode...)
	e.Bytes = append(e.Bytes, modrm...)
	e.Bytes = append(e.Bytes, sib...)
	dispOffset := len(e.Bytes)
	e.Bytes = append(e.Bytes, disp...)
	if ripLabel != "" {
		e.HasReference = true
		e.RefOffset = dispOffset
		e.RefLabel = ripLabel
		e.RefFormat = ripFormat
	}
	trailingOffset := len(e.Bytes)
	e.Bytes = append(e.Bytes, imm...)
	if trailingLabel != "" {
		e.HasReference = true
		e.RefOffset = trailingOffset
		e.RefLabel = trailingLabel
		e.RefFormat = trailingFormat
	}
	return e
}

func imm8(v int8) []byte  { return []byte{byte(v)} }
func uimm8(v uint8) []byte { return []byte{v} }

func imm16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func imm32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func imm64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}
