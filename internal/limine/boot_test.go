package limine_test

import (
	"testing"

	"github.com/keurnel/bootimg/internal/limine"
)

func TestResponseFieldOffset(t *testing.T) {
	req := limine.NewRequest(limine.TerminalRequest, 0)
	b := req.Encode()
	if len(b) != 48 {
		t.Fatalf("Encode() length = %d, want 48", len(b))
	}
	for i := limine.ResponseOffset; i < limine.ResponseOffset+8; i++ {
		if b[i] != 0 {
			t.Fatalf("Response field byte %d = %#x, want 0", i, b[i])
		}
	}
}

func TestNewRequestCarriesCommonMagic(t *testing.T) {
	req := limine.NewRequest(limine.BootloaderInfoRequest, 0)
	if req.CommonMagic != limine.CommonMagic {
		t.Fatalf("CommonMagic = %#v, want %#v", req.CommonMagic, limine.CommonMagic)
	}
	if req.RequestID != limine.BootloaderInfoRequest {
		t.Fatalf("RequestID = %#v, want %#v", req.RequestID, limine.BootloaderInfoRequest)
	}
}
