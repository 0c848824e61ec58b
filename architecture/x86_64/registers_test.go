package x86_64_test

import (
	"testing"

	x86_64 "github.com/keurnel/bootimg/architecture/x86_64"
)

func TestR64Projection(t *testing.T) {
	tt := []struct {
		name     string
		reg      x86_64.R64
		low      byte
		extended bool
		str      string
	}{
		{"rax", x86_64.RAX, 0, false, "rax"},
		{"rsp", x86_64.RSP, 4, false, "rsp"},
		{"rbp", x86_64.RBP, 5, false, "rbp"},
		{"r8", x86_64.R8Q, 0, true, "r8"},
		{"r12", x86_64.R12, 4, true, "r12"},
		{"r13", x86_64.R13, 5, true, "r13"},
		{"r15", x86_64.R15, 7, true, "r15"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.reg.Low(); got != tc.low {
				t.Errorf("Low() = %d, want %d", got, tc.low)
			}
			if got := tc.reg.Extended(); got != tc.extended {
				t.Errorf("Extended() = %v, want %v", got, tc.extended)
			}
			if got := tc.reg.String(); got != tc.str {
				t.Errorf("String() = %q, want %q", got, tc.str)
			}
		})
	}
}

func TestR64StructuralRestrictions(t *testing.T) {
	tt := []struct {
		name   string
		reg    x86_64.R64
		isRBP  bool
		isRSP  bool
	}{
		{"rax", x86_64.RAX, false, false},
		{"rbp", x86_64.RBP, true, false},
		{"r13", x86_64.R13, true, false},
		{"rsp", x86_64.RSP, false, true},
		{"r12", x86_64.R12, false, true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.reg.IsRBP(); got != tc.isRBP {
				t.Errorf("IsRBP() = %v, want %v", got, tc.isRBP)
			}
			if got := tc.reg.IsRSP(); got != tc.isRSP {
				t.Errorf("IsRSP() = %v, want %v", got, tc.isRSP)
			}
		})
	}
}

func TestR8NamesExcludeRexOnlyLowBytes(t *testing.T) {
	// SPL/BPL/SIL/DIL are intentionally not part of the R8 enum; AH/CH/DH/BH
	// occupy their encodings (4-7) instead, matching the no-REX legacy
	// high-byte registers.
	tt := []struct {
		reg  x86_64.R8
		want string
	}{
		{x86_64.AH, "ah"},
		{x86_64.CH, "ch"},
		{x86_64.DH, "dh"},
		{x86_64.BH, "bh"},
	}
	for _, tc := range tt {
		if got := tc.reg.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
