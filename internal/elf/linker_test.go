package elf_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/keurnel/bootimg/internal/asmerr"
	"github.com/keurnel/bootimg/internal/elf"
	"github.com/keurnel/bootimg/internal/segment"
)

func TestRecordSizes(t *testing.T) {
	tt := []struct {
		name string
		got  int
		want int
	}{
		{"FileHeaderSize", elf.FileHeaderSize, 64},
		{"ProgramHeaderSize", elf.ProgramHeaderSize, 56},
		{"SectionHeaderSize", elf.SectionHeaderSize, 64},
		{"SymbolSize", elf.SymbolSize, 24},
	}
	for _, tc := range tt {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestFinishRequiresEntryLabel(t *testing.T) {
	l := elf.NewLinker()
	seg := segment.New()
	seg.Append([]byte{0xf4})
	l.AddSegment(elf.PFR|elf.PFX, 1<<12, seg)
	if _, err := l.Finish(); !errors.Is(err, asmerr.ErrMissingEntry) {
		t.Fatalf("Finish() err = %v, want ErrMissingEntry", err)
	}
}

func TestFinishResolvesCrossSegmentReference(t *testing.T) {
	data := segment.New()
	data.Label("value")
	data.Append([]byte{0, 0, 0, 0, 0, 0, 0, 0})

	code := segment.New()
	code.Label("entry")
	code.AppendReference("value", segment.Abs64)

	l := elf.NewLinker()
	l.AddSegment(elf.PFR|elf.PFW, 1<<12, data)
	l.AddSegment(elf.PFR|elf.PFX, 1<<12, code)

	linked, err := l.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(linked.Bytes()) == 0 {
		t.Fatal("Finish() produced no bytes")
	}
	b := linked.Bytes()
	const (
		ph0 = elf.FileHeaderSize
		ph1 = elf.FileHeaderSize + elf.ProgramHeaderSize
	)
	dataVAddr := binary.LittleEndian.Uint64(b[ph0+16:])
	codeOffset := binary.LittleEndian.Uint64(b[ph1+8:])
	if got := binary.LittleEndian.Uint64(b[codeOffset:]); got != dataVAddr {
		t.Errorf("resolved Abs64 = %#x, want data p_vaddr %#x", got, dataVAddr)
	}
}

func TestFinishUndefinedLabelReference(t *testing.T) {
	code := segment.New()
	code.Label("entry")
	code.AppendReference("nowhere", segment.Abs64)

	l := elf.NewLinker()
	l.AddSegment(elf.PFR|elf.PFX, 1<<12, code)
	if _, err := l.Finish(); !errors.Is(err, asmerr.ErrUndefinedLabel) {
		t.Fatalf("Finish() err = %v, want ErrUndefinedLabel", err)
	}
}

func TestFirstSegmentOffsetVAddrCongruence(t *testing.T) {
	seg := segment.New()
	seg.Label("entry")
	seg.Append([]byte{0xf4})

	l := elf.NewLinker()
	l.AddSegment(elf.PFR|elf.PFX, 0x1000, seg)
	linked, err := l.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	b := linked.Bytes()
	off := binary.LittleEndian.Uint64(b[elf.FileHeaderSize+8:])
	vaddr := binary.LittleEndian.Uint64(b[elf.FileHeaderSize+16:])
	if off%0x1000 != vaddr%0x1000 {
		t.Errorf("p_offset %#x and p_vaddr %#x are not congruent mod 0x1000", off, vaddr)
	}
}

func TestFinishTwoSegmentLayout(t *testing.T) {
	const pageAlign = 0x1000

	data := segment.New()
	data.Append(make([]byte, 16))
	if err := data.Align(pageAlign); err != nil {
		t.Fatalf("data.Align: %v", err)
	}

	code := segment.New()
	if err := code.Label("entry"); err != nil {
		t.Fatalf("Label: %v", err)
	}
	code.Append(make([]byte, 32))
	if err := code.Align(pageAlign); err != nil {
		t.Fatalf("code.Align: %v", err)
	}

	l := elf.NewLinker()
	l.AddSegment(elf.PFR|elf.PFW, pageAlign, data)
	l.AddSegment(elf.PFR|elf.PFX, pageAlign, code)

	linked, err := l.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	b := linked.Bytes()

	const (
		ph0 = elf.FileHeaderSize
		ph1 = elf.FileHeaderSize + elf.ProgramHeaderSize
	)
	dataOffset := binary.LittleEndian.Uint64(b[ph0+8:])
	dataVAddr := binary.LittleEndian.Uint64(b[ph0+16:])
	codeOffset := binary.LittleEndian.Uint64(b[ph1+8:])
	codeVAddr := binary.LittleEndian.Uint64(b[ph1+16:])
	entry := binary.LittleEndian.Uint64(b[24:])

	if dataOffset != 0x1000 {
		t.Errorf("data p_offset = %#x, want 0x1000", dataOffset)
	}
	if codeOffset != 0x2000 {
		t.Errorf("code p_offset = %#x, want 0x2000", codeOffset)
	}
	if codeVAddr != dataVAddr+pageAlign {
		t.Errorf("code p_vaddr = %#x, want data p_vaddr + 0x1000 (%#x)", codeVAddr, dataVAddr+pageAlign)
	}
	if entry != dataVAddr+pageAlign {
		t.Errorf("e_entry = %#x, want data p_vaddr + 0x1000 (%#x)", entry, dataVAddr+pageAlign)
	}
}

func TestFinishDuplicateLabelAcrossSegments(t *testing.T) {
	first := segment.New()
	if err := first.Label("entry"); err != nil {
		t.Fatalf("Label: %v", err)
	}
	first.Append([]byte{0xf4})
	if err := first.Label("dup"); err != nil {
		t.Fatalf("Label: %v", err)
	}

	second := segment.New()
	if err := second.Label("dup"); err != nil {
		t.Fatalf("Label: %v", err)
	}
	second.Append([]byte{0xf4})

	l := elf.NewLinker()
	l.AddSegment(elf.PFR|elf.PFX, 1<<12, first)
	l.AddSegment(elf.PFR|elf.PFX, 1<<12, second)

	if _, err := l.Finish(); !errors.Is(err, asmerr.ErrDuplicateLabel) {
		t.Fatalf("Finish() err = %v, want ErrDuplicateLabel", err)
	}
}
