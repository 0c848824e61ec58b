// Package segment implements the append-only byte buffer shared by the
// x86-64 assembler and the ELF linker: a growable data region with named
// labels and a list of pending cross-reference fixups to be resolved once
// every label's final virtual address is known.
package segment

import (
	"fmt"

	"github.com/keurnel/bootimg/internal/asmerr"
)

// ReferenceFormat describes how a pending reference is encoded once its
// target label's address is known.
type ReferenceFormat int

const (
	// Rel8 is a signed 8-bit displacement relative to the byte immediately
	// following the reference field.
	Rel8 ReferenceFormat = iota
	// Rel32 is a signed 32-bit displacement relative to the byte
	// immediately following the reference field.
	Rel32
	// Abs32 is an absolute 32-bit virtual address. The target address must
	// fit in 32 bits without loss.
	Abs32
	// Abs64 is an absolute 64-bit virtual address.
	Abs64
)

// Len reports the width in bytes of the encoded field.
func (f ReferenceFormat) Len() int {
	switch f {
	case Rel8:
		return 1
	case Rel32:
		return 4
	case Abs32:
		return 4
	case Abs64:
		return 8
	default:
		panic("segment: unknown reference format")
	}
}

// IsRelative reports whether the format encodes a displacement rather than
// an absolute address.
func (f ReferenceFormat) IsRelative() bool {
	return f == Rel8 || f == Rel32
}

// Resolve computes the little-endian bytes for a reference whose field
// begins at ownVAddr and whose target resolves to targetVAddr.
func (f ReferenceFormat) Resolve(ownVAddr, targetVAddr uint64) ([]byte, error) {
	switch f {
	case Rel8, Rel32:
		next := ownVAddr + uint64(f.Len())
		disp := int64(targetVAddr) - int64(next)
		if f == Rel8 {
			if disp < -128 || disp > 127 {
				return nil, fmt.Errorf("%w: rel8 displacement %d out of range", asmerr.ErrRelativeOverflow, disp)
			}
			return []byte{byte(int8(disp))}, nil
		}
		if disp < -(1<<31) || disp > (1<<31)-1 {
			return nil, fmt.Errorf("%w: rel32 displacement %d out of range", asmerr.ErrRelativeOverflow, disp)
		}
		return le32(uint32(int32(disp))), nil
	case Abs32:
		if targetVAddr > 0xffffffff {
			return nil, fmt.Errorf("%w: absolute address %#x does not fit in 32 bits", asmerr.ErrRelativeOverflow, targetVAddr)
		}
		return le32(uint32(targetVAddr)), nil
	case Abs64:
		return le64(targetVAddr), nil
	default:
		panic("segment: unknown reference format")
	}
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

// Reference is a pending fixup: the byte offset within the segment where
// the encoded field begins, the label it targets, and the format to encode
// it in once the label's address is known.
type Reference struct {
	Location int
	Label    string
	Format   ReferenceFormat
}

// Segment is an append-only byte buffer with named label offsets and a
// queue of pending references. It has no notion of its own virtual address
// until it is handed to a linker.
type Segment struct {
	data       []byte
	labels     map[string]int
	references []Reference
}

// New returns an empty segment.
func New() *Segment {
	return &Segment{labels: make(map[string]int)}
}

// Len reports the current size of the segment's data in bytes.
func (s *Segment) Len() int {
	return len(s.data)
}

// Data returns the segment's backing bytes. The returned slice aliases the
// segment's storage and must not be retained across further mutation.
func (s *Segment) Data() []byte {
	return s.data
}

// DataMut returns a mutable view of the segment's backing bytes, for
// patching already-appended data in place (used by fixup resolution).
func (s *Segment) DataMut() []byte {
	return s.data
}

// Align pads the segment with zero bytes until its length is a multiple of
// alignment, which must be a power of two.
func (s *Segment) Align(alignment int) error {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return fmt.Errorf("%w: %d", asmerr.ErrAlignmentNotPowerOfTwo, alignment)
	}
	rem := len(s.data) % alignment
	if rem == 0 {
		return nil
	}
	s.data = append(s.data, make([]byte, alignment-rem)...)
	return nil
}

// Label records name as pointing at the segment's current end.
func (s *Segment) Label(name string) error {
	return s.OffsetLabel(0, name)
}

// OffsetLabel records name as pointing at offset bytes past the segment's
// current end (offset may be negative, to label a point already written).
func (s *Segment) OffsetLabel(offset int, name string) error {
	if _, exists := s.labels[name]; exists {
		return fmt.Errorf("%w: %q", asmerr.ErrDuplicateLabel, name)
	}
	s.labels[name] = len(s.data) + offset
	return nil
}

// LabelLocation returns the byte offset within the segment recorded for
// name, if any.
func (s *Segment) LabelLocation(name string) (int, bool) {
	off, ok := s.labels[name]
	return off, ok
}

// Labels returns a copy of the segment's name-to-offset table.
func (s *Segment) Labels() map[string]int {
	out := make(map[string]int, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// Append writes raw bytes to the end of the segment and returns the offset
// at which they begin.
func (s *Segment) Append(b []byte) int {
	off := len(s.data)
	s.data = append(s.data, b...)
	return off
}

// AppendReference reserves format.Len() zero bytes at the segment's current
// end and enqueues a pending reference to label at that location.
func (s *Segment) AppendReference(label string, format ReferenceFormat) int {
	off := s.Append(make([]byte, format.Len()))
	s.references = append(s.references, Reference{Location: off, Label: label, Format: format})
	return off
}

// Reference enqueues a pending reference at location without writing any
// bytes (the caller is responsible for having reserved the space, e.g. as
// part of a larger instruction encoding already appended).
func (s *Segment) Reference(location int, label string, format ReferenceFormat) {
	s.references = append(s.references, Reference{Location: location, Label: label, Format: format})
}

// OffsetReference is equivalent to Reference but relative to the segment's
// current end.
func (s *Segment) OffsetReference(offset int, label string, format ReferenceFormat) {
	s.Reference(len(s.data)+offset, label, format)
}

// AbsoluteReference enqueues a reference pinned at an exact byte offset,
// regardless of the segment's current end (used when patching a field
// inside an already-appended instruction encoding).
func (s *Segment) AbsoluteReference(location int, label string, format ReferenceFormat) {
	s.Reference(location, label, format)
}

// References returns the segment's pending reference list.
func (s *Segment) References() []Reference {
	return s.references
}

// Extend appends another segment's data, labels and references to s,
// rebasing the other segment's offsets by the current length of s. Label
// names that collide are reported as duplicates.
func (s *Segment) Extend(other *Segment) error {
	base := len(s.data)
	for name, off := range other.labels {
		if _, exists := s.labels[name]; exists {
			return fmt.Errorf("%w: %q", asmerr.ErrDuplicateLabel, name)
		}
		s.labels[name] = base + off
	}
	for _, ref := range other.references {
		s.references = append(s.references, Reference{
			Location: base + ref.Location,
			Label:    ref.Label,
			Format:   ref.Format,
		})
	}
	s.data = append(s.data, other.data...)
	return nil
}
