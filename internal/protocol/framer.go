package protocol

import "github.com/mlinton/XVA1-Soft-Synth/internal/patch"

const (
	// FrameSize is the length of a patch dump on the wire.
	FrameSize = patch.ImageSize

	// AckCode is sent by the synth, alone, to acknowledge a command.
	AckCode = 0x00
)

type EventKind int

const (
	Ack EventKind = iota
	PatchFrame
)

func (k EventKind) String() string {
	switch k {
	case Ack:
		return "ack"
	case PatchFrame:
		return "patch"
	default:
		return "unknown"
	}
}

// Event is one classified unit of the inbound stream. Data is set only for
// PatchFrame and is always FrameSize bytes, owned by the receiver.
type Event struct {
	Kind EventKind
	Data []byte
}

// Framer splits the synth's byte stream into ACKs and 512-byte patch frames.
// Nothing else is delimited on the wire: a chunk holding exactly one 0x00 is
// an ACK, every other byte belongs to the next dump.
//
// A Framer is not safe for concurrent use; the session read loop owns it.
type Framer struct {
	buf []byte
}

// Feed consumes one chunk as delivered by the transport and returns the
// events it completed, in order. Several dumps in one chunk yield several
// frames; a partial dump stays buffered.
func (f *Framer) Feed(chunk []byte) []Event {
	if len(chunk) == 1 && chunk[0] == AckCode {
		return []Event{{Kind: Ack}}
	}

	f.buf = append(f.buf, chunk...)

	var events []Event
	for len(f.buf) >= FrameSize {
		frame := make([]byte, FrameSize)
		copy(frame, f.buf[:FrameSize])
		events = append(events, Event{Kind: PatchFrame, Data: frame})
		f.buf = f.buf[FrameSize:]
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return events
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
