// Package asmerr defines the closed set of error kinds produced by the
// encoder, segment and linker packages. Each kind is a sentinel value
// suitable for errors.Is after being wrapped with fmt.Errorf("...: %w").
package asmerr

import "errors"

var (
	// ErrDuplicateLabel is returned when a label name is defined twice
	// within a segment, or when merging segments finds the same label
	// defined in more than one of them.
	ErrDuplicateLabel = errors.New("duplicate label")

	// ErrUndefinedLabel is returned when a reference targets a label name
	// that was never defined in any linked segment.
	ErrUndefinedLabel = errors.New("undefined label")

	// ErrRelativeOverflow is returned when a relative or truncated-absolute
	// reference's computed value does not fit in its encoded width.
	ErrRelativeOverflow = errors.New("reference value out of range")

	// ErrNoViableEncoding is returned when none of a multi-candidate
	// instruction's forms can be resolved at finish time.
	ErrNoViableEncoding = errors.New("no viable encoding")

	// ErrInvalidOperand is returned when an operand combination violates a
	// structural encoding invariant (e.g. RSP as a SIB index register).
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrAlignmentNotPowerOfTwo is returned when an alignment argument is
	// not a power of two.
	ErrAlignmentNotPowerOfTwo = errors.New("alignment is not a power of two")

	// ErrSegmentTableOverflow is returned when a linked image would require
	// more program headers than fit the 16-bit e_phnum field, and also when
	// the linker is given no segments at all.
	ErrSegmentTableOverflow = errors.New("segment table overflow")

	// ErrMissingEntry is returned when a linked image has no "entry" label.
	ErrMissingEntry = errors.New("missing entry label")
)
