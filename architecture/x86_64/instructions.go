package x86_64

import "github.com/keurnel/bootimg/internal/segment"

// Each function below encodes exactly one (mnemonic, operand shape) pair,
// named <MNEMONIC>_<shape>. A function returning a single *Encoding is the
// common case; a mnemonic with more than one viable candidate for the same
// operand shape (none of the ones below need this) would instead return an
// ordered, smallest-first []*Encoding for Assembler.Push to resolve.

// HLT halts the processor until the next interrupt.
func HLT() *Encoding {
	return build(nil, nil, []byte{0xf4}, nil, nil, nil, "", 0, nil, "", 0)
}

// NOP is a one-byte no-op.
func NOP() *Encoding {
	return build(nil, nil, []byte{0x90}, nil, nil, nil, "", 0, nil, "", 0)
}

// INT3 raises a breakpoint trap.
func INT3() *Encoding {
	return build(nil, nil, []byte{0xcc}, nil, nil, nil, "", 0, nil, "", 0)
}

// STI sets the interrupt flag.
func STI() *Encoding {
	return build(nil, nil, []byte{0xfb}, nil, nil, nil, "", 0, nil, "", 0)
}

// RET returns to the caller.
func RET() *Encoding {
	return build(nil, nil, []byte{0xc3}, nil, nil, nil, "", 0, nil, "", 0)
}

// IRET returns from an interrupt handler, restoring a 64-bit frame.
func IRET() *Encoding {
	return build(nil, rex(true, false, false, false), []byte{0xcf}, nil, nil, nil, "", 0, nil, "", 0)
}

// LIDT_Mem loads the interrupt descriptor table register from [base].
func LIDT_Mem(addr Address) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, 3)
	if err != nil {
		return nil, err
	}
	return build(nil, rex(false, false, rexX, rexB), []byte{0x0f, 0x01}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// PUSH_R64 pushes r onto the stack.
func PUSH_R64(r R64) *Encoding {
	return build(nil, rex(false, false, false, r.Extended()), []byte{0x50 + r.Low()}, nil, nil, nil, "", 0, nil, "", 0)
}

// POP_R64 pops the stack into r.
func POP_R64(r R64) *Encoding {
	return build(nil, rex(false, false, false, r.Extended()), []byte{0x58 + r.Low()}, nil, nil, nil, "", 0, nil, "", 0)
}

// INC_R64 increments r in place.
func INC_R64(r R64) *Encoding {
	modrm := modrmByte(3, 0, r.Low())
	return build(nil, rex(true, false, false, r.Extended()), []byte{0xff}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// TEST_R64_R64 computes dst & src and sets flags, discarding the result.
func TEST_R64_R64(dst, src R64) *Encoding {
	modrm := modrmByte(3, src.Low(), dst.Low())
	return build(nil, rex(true, src.Extended(), false, dst.Extended()), []byte{0x85}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// XOR_R64_R64 computes dst ^= src.
func XOR_R64_R64(dst, src R64) *Encoding {
	modrm := modrmByte(3, dst.Low(), src.Low())
	return build(nil, rex(true, dst.Extended(), false, src.Extended()), []byte{0x33}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// AND_R64_Imm8 computes dst &= sign-extend(imm).
func AND_R64_Imm8(dst R64, imm int8) *Encoding {
	modrm := modrmByte(3, 4, dst.Low())
	return build(nil, rex(true, false, false, dst.Extended()), []byte{0x83}, []byte{modrm}, nil, nil, "", 0, imm8(imm), "", 0)
}

// SUB_R64_Imm8 subtracts imm from the low byte of dst. This reuses opcode 0x80
// (the 8-bit form) without REX.W, matching the reference implementation's
// SUB this package is ported from; it only ever subtracts the low byte of
// dst and is exercised here with values small enough that the caller does
// not need the missing top 56 bits cleared.
func SUB_R64_Imm8(dst R64, imm int8) *Encoding {
	modrm := modrmByte(3, 5, dst.Low())
	return build(nil, rex(false, false, false, dst.Extended()), []byte{0x80}, []byte{modrm}, nil, nil, "", 0, imm8(imm), "", 0)
}

// SHR_R64_Imm8 computes dst >>= imm (logical).
func SHR_R64_Imm8(dst R64, imm uint8) *Encoding {
	modrm := modrmByte(3, 5, dst.Low())
	return build(nil, rex(true, false, false, dst.Extended()), []byte{0xc1}, []byte{modrm}, nil, nil, "", 0, uimm8(imm), "", 0)
}

// SHR_R64_CL computes dst >>= cl (logical), the variable-count shift form.
func SHR_R64_CL(dst R64) *Encoding {
	modrm := modrmByte(3, 5, dst.Low())
	return build(nil, rex(true, false, false, dst.Extended()), []byte{0xd3}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// CMP_Mem_Imm8 compares [addr] against sign-extend(imm), discarding the
// result.
func CMP_Mem_Imm8(addr Address, imm int8) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, 7)
	if err != nil {
		return nil, err
	}
	return build(nil, rex(false, false, rexX, rexB), []byte{0x80}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, imm8(imm), "", 0), nil
}

// OR_Mem_Imm16 computes [addr] |= imm, a 16-bit operand-size form.
func OR_Mem_Imm16(addr Address, imm uint16) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, 1)
	if err != nil {
		return nil, err
	}
	return build([]byte{0x66}, rex(false, false, rexX, rexB), []byte{0x81}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, imm16(imm), "", 0), nil
}

// LEA_R64_RIP loads the address of label into dst.
func LEA_R64_RIP(dst R64, label string) *Encoding {
	addr := RIPRelative(label)
	modrm, sib, disp, rexX, rexB, ripLabel, _ := addressField(addr, dst.Low())
	return build(nil, rex(true, dst.Extended(), rexX, rexB), []byte{0x8d}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0)
}

// MOV_R64_Imm64 loads a full 64-bit immediate into dst.
func MOV_R64_Imm64(dst R64, imm uint64) *Encoding {
	return build(nil, rex(true, false, false, dst.Extended()), []byte{0xb8 + dst.Low()}, nil, nil, nil, "", 0, imm64(imm), "", 0)
}

// MOV_R64_R64 copies src into dst.
func MOV_R64_R64(dst, src R64) *Encoding {
	modrm := modrmByte(3, dst.Low(), src.Low())
	return build(nil, rex(true, dst.Extended(), false, src.Extended()), []byte{0x8b}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// MOV_R64_Mem loads the 64-bit value at addr into dst.
func MOV_R64_Mem(dst R64, addr Address) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, dst.Low())
	if err != nil {
		return nil, err
	}
	return build(nil, rex(true, dst.Extended(), rexX, rexB), []byte{0x8b}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// MOV_R8_Mem loads the byte at addr into dst.
func MOV_R8_Mem(dst R8, addr Address) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, dst.Low())
	if err != nil {
		return nil, err
	}
	return build(nil, rex(false, dst.Extended(), rexX, rexB), []byte{0x8a}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// MOV_Mem_R64 stores src at addr.
func MOV_Mem_R64(addr Address, src R64) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, src.Low())
	if err != nil {
		return nil, err
	}
	return build(nil, rex(true, src.Extended(), rexX, rexB), []byte{0x89}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// MOV_Mem_R8 stores the byte src at addr.
func MOV_Mem_R8(addr Address, src R8) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, src.Low())
	if err != nil {
		return nil, err
	}
	return build(nil, rex(false, src.Extended(), rexX, rexB), []byte{0x88}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// MOV_Mem_Imm8 stores imm at addr. This carries REX.W the way the
// reference implementation's MOV [base], imm8 does, even though the
// opcode (0xc6 /0) only ever writes a single byte; preserved rather than
// silently dropped since nothing in this package depends on the extra
// prefix being absent.
func MOV_Mem_Imm8(addr Address, imm uint8) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, 0)
	if err != nil {
		return nil, err
	}
	return build(nil, rex(true, false, rexX, rexB), []byte{0xc6}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, uimm8(imm), "", 0), nil
}

// MOV_Mem_R16 stores the 16-bit src at addr, a disp8 memory form.
func MOV_Mem_R16(addr Address, src R16) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, src.Low())
	if err != nil {
		return nil, err
	}
	return build([]byte{0x66}, rex(false, src.Extended(), rexX, rexB), []byte{0x89}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// MOV_Mem_R32 stores the 32-bit src at addr.
func MOV_Mem_R32(addr Address, src R32) (*Encoding, error) {
	modrm, sib, disp, rexX, rexB, ripLabel, err := addressField(addr, src.Low())
	if err != nil {
		return nil, err
	}
	return build(nil, rex(false, src.Extended(), rexX, rexB), []byte{0x89}, []byte{modrm}, sib, disp, ripLabel, segment.Rel32, nil, "", 0), nil
}

// CALL_R64 calls the address held in r.
func CALL_R64(r R64) *Encoding {
	modrm := modrmByte(3, 2, r.Low())
	return build(nil, rex(false, false, false, r.Extended()), []byte{0xff}, []byte{modrm}, nil, nil, "", 0, nil, "", 0)
}

// CALL_Rel32 calls label via a near, rel32-encoded call. There is no short
// form for CALL, so this is the only candidate.
func CALL_Rel32(label string) *Encoding {
	return build(nil, nil, []byte{0xe8}, nil, nil, nil, "", 0, zeros(segment.Rel32.Len()), label, segment.Rel32)
}

// JMP_Rel32 is the near, rel32-encoded unconditional jump to label. There is
// no short form here: unlike a hand-written assembler that shortens a jump
// whenever its target happens to be nearby, this always emits the 5-byte
// near form, matching the reference implementation's JMP<Label>.
func JMP_Rel32(label string) *Encoding {
	return build(nil, nil, []byte{0xe9}, nil, nil, nil, "", 0, zeros(segment.Rel32.Len()), label, segment.Rel32)
}

// JZ_Rel32 is the near, rel32-encoded jump-if-zero to label. As with
// JMP_Rel32, there is no short candidate.
func JZ_Rel32(label string) *Encoding {
	return build(nil, nil, []byte{0x0f, 0x84}, nil, nil, nil, "", 0, zeros(segment.Rel32.Len()), label, segment.Rel32)
}
