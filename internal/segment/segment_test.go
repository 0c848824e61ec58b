package segment_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/keurnel/bootimg/internal/asmerr"
	"github.com/keurnel/bootimg/internal/segment"
)

func TestAlignPadsToBoundary(t *testing.T) {
	s := segment.New()
	s.Append([]byte{1, 2, 3})
	if err := s.Align(8); err != nil {
		t.Fatalf("Align: %v", err)
	}
	if s.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", s.Len())
	}
}

func TestAlignRejectsNonPowerOfTwo(t *testing.T) {
	s := segment.New()
	if err := s.Align(3); !errors.Is(err, asmerr.ErrAlignmentNotPowerOfTwo) {
		t.Fatalf("Align(3) err = %v, want ErrAlignmentNotPowerOfTwo", err)
	}
}

func TestLabelAndDuplicate(t *testing.T) {
	s := segment.New()
	s.Append([]byte{0, 0})
	if err := s.Label("start"); err != nil {
		t.Fatalf("Label: %v", err)
	}
	if off, ok := s.LabelLocation("start"); !ok || off != 2 {
		t.Fatalf("LabelLocation() = (%d, %v), want (2, true)", off, ok)
	}
	if err := s.Label("start"); !errors.Is(err, asmerr.ErrDuplicateLabel) {
		t.Fatalf("second Label() err = %v, want ErrDuplicateLabel", err)
	}
}

func TestOffsetLabel(t *testing.T) {
	s := segment.New()
	s.OffsetLabel(40, "response")
	s.Append(make([]byte, 48))
	if off, ok := s.LabelLocation("response"); !ok || off != 40 {
		t.Fatalf("LabelLocation() = (%d, %v), want (40, true)", off, ok)
	}
}

func TestAppendReferenceReservesSpace(t *testing.T) {
	s := segment.New()
	off := s.AppendReference("target", segment.Abs64)
	if off != 0 || s.Len() != 8 {
		t.Fatalf("AppendReference() off=%d len=%d, want 0, 8", off, s.Len())
	}
	refs := s.References()
	if len(refs) != 1 || refs[0].Label != "target" || refs[0].Format != segment.Abs64 {
		t.Fatalf("References() = %+v", refs)
	}
}

func TestExtendRebasesLabelsAndReferences(t *testing.T) {
	a := segment.New()
	a.Append([]byte{0xaa})

	b := segment.New()
	b.Label("entry")
	b.Append([]byte{0xbb, 0xbb})
	b.AppendReference("elsewhere", segment.Abs32)

	if err := a.Extend(b); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if off, ok := a.LabelLocation("entry"); !ok || off != 1 {
		t.Fatalf("LabelLocation(entry) = (%d, %v), want (1, true)", off, ok)
	}
	refs := a.References()
	if len(refs) != 1 || refs[0].Location != 3 {
		t.Fatalf("References() = %+v, want Location 3", refs)
	}
	if !bytes.Equal(a.Data(), []byte{0xaa, 0xbb, 0xbb, 0, 0, 0, 0}) {
		t.Fatalf("Data() = % x", a.Data())
	}
}

func TestExtendDuplicateLabel(t *testing.T) {
	a := segment.New()
	a.Label("dup")
	b := segment.New()
	b.Label("dup")
	if err := a.Extend(b); !errors.Is(err, asmerr.ErrDuplicateLabel) {
		t.Fatalf("Extend() err = %v, want ErrDuplicateLabel", err)
	}
}

func TestReferenceFormatResolve(t *testing.T) {
	tt := []struct {
		name       string
		format     segment.ReferenceFormat
		own        uint64
		target     uint64
		want       []byte
		wantErrors bool
	}{
		{"rel8 backward", segment.Rel8, 10, 9, []byte{0xfe}, false},
		{"rel32 backward", segment.Rel32, 0, 0, []byte{0xfc, 0xff, 0xff, 0xff}, false},
		{"abs64", segment.Abs64, 0, 0x1000, []byte{0x00, 0x10, 0, 0, 0, 0, 0, 0}, false},
		{"abs32 overflow", segment.Abs32, 0, 1 << 40, nil, true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.format.Resolve(tc.own, tc.target)
			if tc.wantErrors {
				if err == nil {
					t.Fatalf("Resolve() = %x, nil, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(): %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("Resolve() = % x, want % x", got, tc.want)
			}
		})
	}
}
