package elf

import (
	"fmt"
	"io"

	"github.com/keurnel/bootimg/internal/asmerr"
	"github.com/keurnel/bootimg/internal/segment"
)

// startVAddr is the virtual address the first loadable segment is based
// at. It is a fixed constant rather than a Linker parameter — TODO: make
// this configurable once a caller needs an image based somewhere other
// than the top of the higher half.
const startVAddr = 0xffffffff80000000

type loadSegment struct {
	flags uint32
	align uint64
	seg   *segment.Segment
}

// Linker merges a sequence of labeled Segments, each with its own
// alignment and PT_LOAD flags, into one ELF64 image: the program header
// table immediately follows the file header, each segment becomes one
// PT_LOAD entry, and every pending reference across every segment is
// resolved against the merged label table before the image is emitted.
type Linker struct {
	segments []loadSegment
}

// NewLinker returns an empty linker.
func NewLinker() *Linker {
	return &Linker{}
}

// AddSegment takes ownership of seg, to be emitted as a PT_LOAD program
// header with the given flags (PF_R/PF_W/PF_X) and alignment.
func (l *Linker) AddSegment(flags uint32, align uint64, seg *segment.Segment) {
	l.segments = append(l.segments, loadSegment{flags: flags, align: align, seg: seg})
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// Linked is a fully laid-out ELF64 image, ready to be written out.
type Linked struct {
	bytes []byte
}

// Write writes the image's bytes to w.
func (l *Linked) Write(w io.Writer) error {
	_, err := w.Write(l.bytes)
	return err
}

// Bytes returns the image's raw bytes.
func (l *Linked) Bytes() []byte {
	return l.bytes
}

// Finish lays out every added segment, resolves all pending references,
// and returns the linked image.
//
// Layout note: only the first segment's file offset and virtual address
// are aligned together (so it alone is guaranteed p_offset % p_align ==
// p_vaddr % p_align). Each subsequent segment's virtual address is pushed
// up to its own alignment boundary, but its file offset is not pushed to
// match — it simply follows the previous segment's bytes with no padding.
// This mirrors the layout algorithm this linker is ported from. A later
// segment satisfies the congruence only when the bytes before it happen to
// end on its alignment boundary.
func (l *Linker) Finish() (*Linked, error) {
	if len(l.segments) == 0 {
		return nil, fmt.Errorf("%w: no segments to link", asmerr.ErrSegmentTableOverflow)
	}
	if len(l.segments) > 0xffff {
		return nil, fmt.Errorf("%w: %d program headers do not fit e_phnum", asmerr.ErrSegmentTableOverflow, len(l.segments))
	}

	phOff := uint64(FileHeaderSize)
	phEnd := phOff + uint64(len(l.segments))*uint64(ProgramHeaderSize)

	currentFileOffset := alignUp(phEnd, l.segments[0].align)
	currentVAddr := alignUp(startVAddr, l.segments[0].align)

	type placement struct {
		fileOffset uint64
		vaddr      uint64
	}
	placements := make([]placement, len(l.segments))
	phdrs := make([]ProgramHeader, len(l.segments))

	for i, ls := range l.segments {
		if currentVAddr%ls.align != 0 {
			currentVAddr = alignUp(currentVAddr, ls.align)
		}
		size := uint64(ls.seg.Len())
		placements[i] = placement{fileOffset: currentFileOffset, vaddr: currentVAddr}
		phdrs[i] = ProgramHeader{
			Type:   PTLoad,
			Flags:  ls.flags,
			Offset: currentFileOffset,
			VAddr:  currentVAddr,
			PAddr:  currentVAddr,
			FileSz: size,
			MemSz:  size,
			Align:  ls.align,
		}
		currentFileOffset += size
		currentVAddr += size
	}

	labels := make(map[string]uint64)
	for i, ls := range l.segments {
		for name, off := range ls.seg.Labels() {
			vaddr := placements[i].vaddr + uint64(off)
			if _, ok := labels[name]; ok {
				return nil, fmt.Errorf("%w: %q", asmerr.ErrDuplicateLabel, name)
			}
			labels[name] = vaddr
		}
	}

	entry, ok := labels["entry"]
	if !ok {
		return nil, asmerr.ErrMissingEntry
	}

	for i, ls := range l.segments {
		data := ls.seg.DataMut()
		for _, ref := range ls.seg.References() {
			target, ok := labels[ref.Label]
			if !ok {
				return nil, fmt.Errorf("%w: %q", asmerr.ErrUndefinedLabel, ref.Label)
			}
			ownVAddr := placements[i].vaddr + uint64(ref.Location)
			encoded, err := ref.Format.Resolve(ownVAddr, target)
			if err != nil {
				return nil, err
			}
			copy(data[ref.Location:ref.Location+ref.Format.Len()], encoded)
		}
	}

	out := make([]byte, 0, currentFileOffset)
	out = append(out, make([]byte, FileHeaderSize)...)
	for range l.segments {
		out = append(out, make([]byte, ProgramHeaderSize)...)
	}
	if pad := int(placements[0].fileOffset) - len(out); pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	for i, ls := range l.segments {
		if gap := int(placements[i].fileOffset) - len(out); gap > 0 {
			out = append(out, make([]byte, gap)...)
		}
		out = append(out, ls.seg.Data()...)
	}

	header := FileHeader{
		Ident:     NewIdent(),
		Type:      ETExec,
		Machine:   EMX8664,
		Version:   EVCurrent,
		Entry:     entry,
		PhOff:     phOff,
		ShOff:     0,
		Flags:     0,
		EhSize:    FileHeaderSize,
		PhEntSize: ProgramHeaderSize,
		PhNum:     uint16(len(l.segments)),
		ShEntSize: 0,
		ShNum:     0,
		ShStrNdx:  0,
	}
	writeFileHeader(out[:FileHeaderSize], header)
	for i, phdr := range phdrs {
		writeProgramHeader(out[phOff+uint64(i)*ProgramHeaderSize:], phdr)
	}

	return &Linked{bytes: out}, nil
}

func putU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func putU64(b []byte, v uint64) {
	putU32(b, uint32(v))
	putU32(b[4:], uint32(v>>32))
}

func writeFileHeader(b []byte, h FileHeader) {
	copy(b[0:16], h.Ident[:])
	putU16(b[16:], h.Type)
	putU16(b[18:], h.Machine)
	putU32(b[20:], h.Version)
	putU64(b[24:], h.Entry)
	putU64(b[32:], h.PhOff)
	putU64(b[40:], h.ShOff)
	putU32(b[48:], h.Flags)
	putU16(b[52:], h.EhSize)
	putU16(b[54:], h.PhEntSize)
	putU16(b[56:], h.PhNum)
	putU16(b[58:], h.ShEntSize)
	putU16(b[60:], h.ShNum)
	putU16(b[62:], h.ShStrNdx)
}

func writeProgramHeader(b []byte, p ProgramHeader) {
	putU32(b[0:], p.Type)
	putU32(b[4:], p.Flags)
	putU64(b[8:], p.Offset)
	putU64(b[16:], p.VAddr)
	putU64(b[24:], p.PAddr)
	putU64(b[32:], p.FileSz)
	putU64(b[40:], p.MemSz)
	putU64(b[48:], p.Align)
}
