package x86_64

import (
	"fmt"

	"github.com/keurnel/bootimg/internal/asmerr"
	"github.com/keurnel/bootimg/internal/segment"
)

// Assembler accumulates encoded instructions into a Segment, deferring any
// multi-candidate instruction (one with more than one viable encoding of
// the same operand shape, ordered smallest-first) until Finish resolves it.
type Assembler struct {
	seg     *segment.Segment
	pending []pending
}

type pending struct {
	location   int
	reserved   int
	candidates []*Encoding
	resolved   bool
}

// New returns an assembler with an empty backing segment.
func New() *Assembler {
	return &Assembler{seg: segment.New()}
}

// Label records name as pointing at the assembler's current position.
func (a *Assembler) Label(name string) error {
	return a.seg.Label(name)
}

// Push appends an instruction's candidate encodings. A single candidate is
// committed immediately. Multiple candidates (ordered smallest-first; no
// encoder function in this package returns more than one) reserve the
// worst-case (last, largest) size now and are resolved by Finish.
func (a *Assembler) Push(candidates ...*Encoding) error {
	switch len(candidates) {
	case 0:
		return fmt.Errorf("%w: no candidate encodings supplied", asmerr.ErrNoViableEncoding)
	case 1:
		return a.commit(candidates[0])
	default:
		largest := candidates[len(candidates)-1]
		loc := a.seg.Append(make([]byte, len(largest.Bytes)))
		a.pending = append(a.pending, pending{
			location:   loc,
			reserved:   len(largest.Bytes),
			candidates: candidates,
		})
		return nil
	}
}

func (a *Assembler) commit(e *Encoding) error {
	loc := a.seg.Append(e.Bytes)
	if e.HasReference {
		a.seg.Reference(loc+e.RefOffset, e.RefLabel, e.RefFormat)
	}
	return nil
}

// place writes chosen's bytes into the space reserved for p, padding any
// unused reserved bytes with NOP (0x90), and registers chosen's reference
// (if any) at its final location.
func (a *Assembler) place(p pending, chosen *Encoding) error {
	data := a.seg.DataMut()
	copy(data[p.location:], chosen.Bytes)
	for i := p.location + len(chosen.Bytes); i < p.location+p.reserved; i++ {
		data[i] = 0x90
	}
	if chosen.HasReference {
		a.seg.AbsoluteReference(p.location+chosen.RefOffset, chosen.RefLabel, chosen.RefFormat)
	}
	return nil
}

// Finish resolves every pending multi-candidate instruction in two sweeps
// and returns the completed segment.
//
// Sweep 1 (forced-largest) resolves every pending instruction whose target
// label is not yet defined in this segment: since the eventual address
// (possibly in another segment, resolved only once the image is linked) is
// unknown, the largest candidate is kept and its reference is handed to the
// segment to be resolved later, same as any other cross-segment reference.
//
// Sweep 2 (shortest-viable) resolves every remaining pending instruction —
// those whose target label is already defined in this segment — by trying
// candidates smallest-to-largest and keeping the first whose displacement,
// computed against the label's segment-local offset, fits the candidate's
// format.
func (a *Assembler) Finish() (*segment.Segment, error) {
	for i := range a.pending {
		p := &a.pending[i]
		label := p.candidates[0].RefLabel
		if _, ok := a.seg.LabelLocation(label); ok {
			continue
		}
		largest := p.candidates[len(p.candidates)-1]
		if err := a.place(*p, largest); err != nil {
			return nil, err
		}
		p.resolved = true
	}

	for i := range a.pending {
		p := &a.pending[i]
		if p.resolved {
			continue
		}
		label := p.candidates[0].RefLabel
		target, ok := a.seg.LabelLocation(label)
		if !ok {
			return nil, fmt.Errorf("%w: %q", asmerr.ErrUndefinedLabel, label)
		}
		placed := false
		for _, cand := range p.candidates {
			fieldOffset := p.location + cand.RefOffset
			if _, err := cand.RefFormat.Resolve(uint64(fieldOffset), uint64(target)); err == nil {
				if err := a.place(*p, cand); err != nil {
					return nil, err
				}
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("%w: label %q unreachable from offset %d", asmerr.ErrNoViableEncoding, label, p.location)
		}
		p.resolved = true
	}

	return a.seg, nil
}
