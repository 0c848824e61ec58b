package x86_64

// Registers are modeled as one closed Go type per operand width rather than
// a single struct carrying a width tag: an 8-bit register can never be
// handed to a function expecting an R64, so "wrong width register in a
// memory operand" is a compile error instead of a runtime InvalidOperand.
//
// Every register type implements the same three methods: the low 3 bits of
// its encoding (Low), whether that encoding is >= 8 (Extended, the
// REX.[RXB] bit), and its assembly name (String). The types have no methods
// that place a register into a ModR/M, SIB or opcode field; encoding.go
// builds those fields from Low with modrmByte, sibByte and opcode
// arithmetic.

// R8 names an 8-bit general purpose register. SPL, BPL, SIL and DIL (the
// REX-only low-byte forms of RSP/RBP/RSI/RDI) are intentionally omitted:
// reaching them requires forcing a REX prefix even when no other operand
// needs one, a case no instruction in this package's mnemonic set exercises.
type R8 byte

const (
	AL R8 = iota
	CL
	DL
	BL
	AH
	CH
	DH
	BH
	R8B
	R9B
	R10B
	R11B
	R12B
	R13B
	R14B
	R15B
)

// R16 names a 16-bit general purpose register.
type R16 byte

const (
	AX R16 = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	R8W
	R9W
	R10W
	R11W
	R12W
	R13W
	R14W
	R15W
)

// R32 names a 32-bit general purpose register.
type R32 byte

const (
	EAX R32 = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
	R8D
	R9D
	R10D
	R11D
	R12D
	R13D
	R14D
	R15D
)

// R64 names a 64-bit general purpose register.
type R64 byte

const (
	RAX R64 = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	// R8Q is the 64-bit register r8 (encoding 8); the identifier R8 is the
	// 8-bit register type.
	R8Q
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// Low returns the low 3 bits of the register's encoding, the value placed
// into a ModR/M reg/rm field, a SIB base/index field, or an opcode's +rd
// low bits.
func (r R8) Low() byte  { return byte(r) & 0x7 }
func (r R16) Low() byte { return byte(r) & 0x7 }
func (r R32) Low() byte { return byte(r) & 0x7 }
func (r R64) Low() byte { return byte(r) & 0x7 }

// Extended reports whether the register's encoding is 8 or higher, i.e.
// whether a REX.[RXB] bit must be set to select it.
func (r R8) Extended() bool  { return byte(r) >= 8 }
func (r R16) Extended() bool { return byte(r) >= 8 }
func (r R32) Extended() bool { return byte(r) >= 8 }
func (r R64) Extended() bool { return byte(r) >= 8 }

// String returns the canonical lowercase assembly mnemonic for the
// register, e.g. "rax" or "r13d".
func (r R8) String() string  { return r8Names[r] }
func (r R16) String() string { return r16Names[r] }
func (r R32) String() string { return r32Names[r] }
func (r R64) String() string { return r64Names[r] }

var r8Names = [...]string{
	"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
}

var r16Names = [...]string{
	"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
	"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
}

var r32Names = [...]string{
	"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
	"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
}

var r64Names = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

// IsRBP reports whether r is RBP or R13, the R64 values whose low bits are
// 101 and which cannot serve as a bare base (mod=00 + base=101 is
// repurposed as a disp32-only form, so RBP/R13 as a base forces at least a
// disp8).
func (r R64) IsRBP() bool { return r == RBP || r == R13 }

// IsRSP reports whether r is RSP or R12, the R64 values whose low bits are
// 100 (rm=100 means "SIB follows", index=100 means "no index"); the encoder
// rejects both as a SIB index.
func (r R64) IsRSP() bool { return r == RSP || r == R12 }
