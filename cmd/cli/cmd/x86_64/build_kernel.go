// Package x86_64 holds the cobra commands grouped under the x86_64
// architecture, parallel to the package of the same name under
// architecture/.
package x86_64

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	x86_64 "github.com/keurnel/bootimg/architecture/x86_64"
	"github.com/keurnel/bootimg/internal/elf"
	"github.com/keurnel/bootimg/internal/limine"
	"github.com/keurnel/bootimg/internal/segment"
)

// BuildKernelCmd assembles a small Limine-booted demo kernel: it waits for
// the bootloader-info and terminal-write responses, prints a greeting
// naming the bootloader, formats a constant as hex, and halts.
var BuildKernelCmd = &cobra.Command{
	Use:   "build-kernel",
	Short: "Assemble and link the demo kernel image",
	Long: `build-kernel assembles the demonstration kernel (a Limine-protocol
terminal greeting followed by a halt loop) and links it into a bootable
ELF64 executable.`,
	RunE: runBuildKernel,
}

var outputPath string

func init() {
	BuildKernelCmd.Flags().StringVarP(&outputPath, "output", "o", "kernel.elf", "path to write the linked ELF64 image to")
}

func runBuildKernel(cmd *cobra.Command, args []string) error {
	data, err := buildDataSegment()
	if err != nil {
		return fmt.Errorf("build data segment: %w", err)
	}
	code, err := buildCodeSegment()
	if err != nil {
		return fmt.Errorf("build code segment: %w", err)
	}

	linker := elf.NewLinker()
	linker.AddSegment(elf.PFR|elf.PFW, 1<<12, data)
	linker.AddSegment(elf.PFR|elf.PFX, 1<<12, code)
	linked, err := linker.Finish()
	if err != nil {
		return fmt.Errorf("link image: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := linked.Write(f); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	cmd.Println("wrote", outputPath)
	return nil
}

// buildDataSegment lays out the boot-protocol request blocks and the
// constant string/lookup tables the code segment references by label.
func buildDataSegment() (*segment.Segment, error) {
	data := segment.New()

	if err := data.Align(8); err != nil {
		return nil, err
	}

	if err := data.OffsetLabel(limine.ResponseOffset, "terminal_response"); err != nil {
		return nil, err
	}
	data.Append(limine.NewRequest(limine.TerminalRequest, 0).Encode())
	data.AppendReference("terminal_callback", segment.Abs64)

	if err := data.OffsetLabel(limine.ResponseOffset, "bootloader_info_response"); err != nil {
		return nil, err
	}
	data.Append(limine.NewRequest(limine.BootloaderInfoRequest, 0).Encode())

	if err := data.Label("str_hello"); err != nil {
		return nil, err
	}
	data.Append([]byte("Hello \x00"))

	if err := data.Label("str_space"); err != nil {
		return nil, err
	}
	data.Append([]byte(" \x00"))

	if err := data.Label("tohex_lut"); err != nil {
		return nil, err
	}
	data.Append([]byte("0123456789abcdef"))

	if err := data.Label("tohex_buffer"); err != nil {
		return nil, err
	}
	data.Append(make([]byte, 32))

	return data, nil
}

// buildCodeSegment assembles the entry point and its two small procedures
// (print, a null-terminated-string writer via the terminal callback, and
// tohex, a 64-bit-integer-to-hex-string formatter).
func buildCodeSegment() (*segment.Segment, error) {
	a := x86_64.New()

	if err := a.Label("entry"); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RBX, "bootloader_info_response"))
	mustPush(a, movIndirect(x86_64.RBX, x86_64.Indirect(x86_64.RBX)))
	mustPush(a, x86_64.TEST_R64_R64(x86_64.RBX, x86_64.RBX))
	if err := a.Push(x86_64.JZ_Rel32("halt")); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RSI, "str_hello"))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	mustPush(a, movIndirect(x86_64.RSI, x86_64.IndexDisp8(x86_64.RBX, 8)))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RSI, "str_space"))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	mustPush(a, movIndirect(x86_64.RSI, x86_64.IndexDisp8(x86_64.RBX, 16)))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RSI, "str_space"))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.MOV_R64_Imm64(x86_64.RDI, 0xdeadbeef))
	if err := a.Push(x86_64.CALL_Rel32("tohex")); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.MOV_R64_R64(x86_64.RSI, x86_64.RAX))
	if err := a.Push(x86_64.CALL_Rel32("print")); err != nil {
		return nil, err
	}

	if err := a.Push(x86_64.JMP_Rel32("halt")); err != nil {
		return nil, err
	}

	// print: RSI -> null-terminated string.
	if err := a.Label("print"); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.XOR_R64_R64(x86_64.RDX, x86_64.RDX))
	if err := a.Label("strlen_top"); err != nil {
		return nil, err
	}
	if enc, err := x86_64.CMP_Mem_Imm8(x86_64.IndexBase(x86_64.RSI, x86_64.RDX), 0); err != nil {
		return nil, err
	} else if err := a.Push(enc); err != nil {
		return nil, err
	}
	if err := a.Push(x86_64.JZ_Rel32("strlen_bottom")); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.INC_R64(x86_64.RDX))
	if err := a.Push(x86_64.JMP_Rel32("strlen_top")); err != nil {
		return nil, err
	}
	if err := a.Label("strlen_bottom"); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RAX, "terminal_response"))
	mustPush(a, movIndirect(x86_64.RAX, x86_64.Indirect(x86_64.RAX)))
	mustPush(a, x86_64.TEST_R64_R64(x86_64.RAX, x86_64.RAX))
	if err := a.Push(x86_64.JZ_Rel32("halt")); err != nil {
		return nil, err
	}

	mustPush(a, movIndirect(x86_64.RDI, x86_64.IndexDisp8(x86_64.RAX, 8)))
	mustPush(a, x86_64.TEST_R64_R64(x86_64.RDI, x86_64.RDI))
	if err := a.Push(x86_64.JZ_Rel32("halt")); err != nil {
		return nil, err
	}
	mustPush(a, movIndirect(x86_64.RDI, x86_64.IndexDisp8(x86_64.RAX, 16)))
	mustPush(a, movIndirect(x86_64.RDI, x86_64.Indirect(x86_64.RDI)))
	mustPush(a, movIndirect(x86_64.RAX, x86_64.IndexDisp8(x86_64.RAX, 24)))
	if err := a.Push(x86_64.CALL_R64(x86_64.RAX)); err != nil {
		return nil, err
	}
	if err := a.Push(x86_64.RET()); err != nil {
		return nil, err
	}

	// tohex: RDI -> RAX (pointer to a null-terminated hex string, valid
	// only until the next call).
	if err := a.Label("tohex"); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.MOV_R64_Imm64(x86_64.RCX, 64))
	mustPush(a, x86_64.LEA_R64_RIP(x86_64.R9, "tohex_buffer"))
	mustPush(a, x86_64.LEA_R64_RIP(x86_64.R10, "tohex_lut"))

	if err := a.Label("tohex_top"); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.TEST_R64_R64(x86_64.RCX, x86_64.RCX))
	if err := a.Push(x86_64.JZ_Rel32("tohex_bottom")); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.SUB_R64_Imm8(x86_64.RCX, 4))

	mustPush(a, x86_64.MOV_R64_R64(x86_64.R11, x86_64.RDI))
	mustPush(a, x86_64.SHR_R64_CL(x86_64.R11))
	mustPush(a, x86_64.AND_R64_Imm8(x86_64.R11, 0x0f))
	if enc, err := x86_64.MOV_R8_Mem(x86_64.R11B, x86_64.IndexBase(x86_64.R10, x86_64.R11)); err != nil {
		return nil, err
	} else if err := a.Push(enc); err != nil {
		return nil, err
	}
	if enc, err := x86_64.MOV_Mem_R8(x86_64.Indirect(x86_64.R9), x86_64.R11B); err != nil {
		return nil, err
	} else if err := a.Push(enc); err != nil {
		return nil, err
	}

	mustPush(a, x86_64.INC_R64(x86_64.R9))
	if err := a.Push(x86_64.JMP_Rel32("tohex_top")); err != nil {
		return nil, err
	}
	if err := a.Label("tohex_bottom"); err != nil {
		return nil, err
	}

	if enc, err := x86_64.MOV_Mem_Imm8(x86_64.Indirect(x86_64.R9), 0); err != nil {
		return nil, err
	} else if err := a.Push(enc); err != nil {
		return nil, err
	}
	mustPush(a, x86_64.LEA_R64_RIP(x86_64.RAX, "tohex_buffer"))
	if err := a.Push(x86_64.RET()); err != nil {
		return nil, err
	}

	if err := a.Label("terminal_callback"); err != nil {
		return nil, err
	}
	if err := a.Push(x86_64.RET()); err != nil {
		return nil, err
	}

	if err := a.Label("halt"); err != nil {
		return nil, err
	}
	if err := a.Push(x86_64.HLT()); err != nil {
		return nil, err
	}
	if err := a.Push(x86_64.JMP_Rel32("halt")); err != nil {
		return nil, err
	}

	return a.Finish()
}

func mov(dst x86_64.R64, addr x86_64.Address) *x86_64.Encoding {
	enc, err := x86_64.MOV_R64_Mem(dst, addr)
	if err != nil {
		// Every call site passes a well-formed Indirect or IndexDisp8
		// address, which MOV_R64_Mem always encodes.
		panic(err)
	}
	return enc
}

func movIndirect(dst x86_64.R64, addr x86_64.Address) *x86_64.Encoding {
	return mov(dst, addr)
}

func mustPush(a *x86_64.Assembler, enc *x86_64.Encoding) {
	if err := a.Push(enc); err != nil {
		panic(err)
	}
}
