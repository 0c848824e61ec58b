// Package limine encodes the boot-protocol request blocks a Limine-style
// bootloader scans for: a fixed-layout record carrying a common magic
// pair, a request-specific id pair, a revision, and a response pointer the
// bootloader fills in before handing control to the kernel entry point.
package limine

import "encoding/binary"

// CommonMagic is the two-word magic every request block starts with,
// regardless of request kind.
var CommonMagic = [2]uint64{0xc7b1dd30df4c8b88, 0x0a82e883a194f07b}

// BootloaderInfoRequest asks for the bootloader's name and version string.
var BootloaderInfoRequest = [2]uint64{0xf55038d8e2a1202f, 0x279426fcf5f59740}

// TerminalRequest asks for a legacy terminal write callback.
var TerminalRequest = [2]uint64{0xc8ac59310c2b0844, 0xa68d0c7265d38878}

// ResponseOffset is the fixed byte offset of the response pointer field
// within an encoded Request, counting from the start of the block.
const ResponseOffset = 40

// Request is a boot-protocol request block: two words of common magic, two
// words identifying the request kind, a revision, and a response pointer
// that starts zeroed and is filled in by the bootloader.
type Request struct {
	CommonMagic [2]uint64
	RequestID   [2]uint64
	Revision    uint64
	Response    uint64
}

// NewRequest builds a zero-response request block for the given request id
// pair and revision.
func NewRequest(requestID [2]uint64, revision uint64) Request {
	return Request{
		CommonMagic: CommonMagic,
		RequestID:   requestID,
		Revision:    revision,
		Response:    0,
	}
}

// Encode returns the request's little-endian byte layout, exactly 48 bytes
// with the Response field beginning at ResponseOffset.
func (r Request) Encode() []byte {
	b := make([]byte, 48)
	binary.LittleEndian.PutUint64(b[0:], r.CommonMagic[0])
	binary.LittleEndian.PutUint64(b[8:], r.CommonMagic[1])
	binary.LittleEndian.PutUint64(b[16:], r.RequestID[0])
	binary.LittleEndian.PutUint64(b[24:], r.RequestID[1])
	binary.LittleEndian.PutUint64(b[32:], r.Revision)
	binary.LittleEndian.PutUint64(b[40:], r.Response)
	return b
}
