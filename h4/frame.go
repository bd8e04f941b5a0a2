package h4

import (
	"encoding/binary"
	"time"

	"github.com/rigado/sdc/hci"
	"github.com/rigado/sdc/raw"
)

const (
	commandHeaderLength = 4
	aclHeaderLength     = 5

	frameTimeout = 500 * time.Millisecond
	maxFrameSize = 1 + raw.HCIMsgBufferMaxSize
)

// assembler cuts the host's byte stream into whole command and ACL frames.
// Bytes before a recognized packet type are dropped, and a frame that does
// not complete within frameTimeout is discarded.
type assembler struct {
	b       []byte
	timeout time.Time
	out     func(f []byte)
	now     func() time.Time

	dropped int
}

func newAssembler(out func(f []byte)) *assembler {
	return &assembler{
		b:   make([]byte, 0, maxFrameSize),
		out: out,
		now: time.Now,
	}
}

// Assemble consumes b, emitting every frame it completes.
func (a *assembler) Assemble(b []byte) {
	if len(b) == 0 {
		return
	}
	if len(a.b) != 0 && a.now().After(a.timeout) {
		a.dropped += len(a.b)
		a.reset()
	}

	for len(b) > 0 {
		if len(a.b) == 0 {
			b = a.waitStart(b)
			if len(b) == 0 {
				return
			}
			a.b = append(a.b, b[0])
			b = b[1:]
		}

		// take what is needed to know the length, then up to the frame end
		need := a.need()
		n := need - len(a.b)
		if n > len(b) {
			n = len(b)
		}
		a.b = append(a.b, b[:n]...)
		b = b[n:]

		l, ok := a.length()
		if !ok {
			continue
		}
		if l > maxFrameSize {
			a.dropped += len(a.b)
			a.reset()
			continue
		}
		if len(a.b) < l {
			continue
		}

		f := make([]byte, l)
		copy(f, a.b)
		a.reset()
		a.out(f)
	}
}

func (a *assembler) reset() {
	a.b = a.b[:0]
	a.timeout = time.Time{}
}

// waitStart skips to the first packet type byte and returns b from there.
func (a *assembler) waitStart(b []byte) []byte {
	for i, v := range b {
		switch v {
		case hci.PktTypeCommand, hci.PktTypeACLData:
			a.timeout = a.now().Add(frameTimeout)
			return b[i:]
		}
		a.dropped++
	}
	return nil
}

// need returns how many bytes the current frame needs before it can be cut.
func (a *assembler) need() int {
	if l, ok := a.length(); ok {
		return l
	}
	if a.b[0] == hci.PktTypeCommand {
		return commandHeaderLength
	}
	return aclHeaderLength
}

func (a *assembler) length() (int, bool) {
	switch a.b[0] {
	case hci.PktTypeCommand:
		if len(a.b) < commandHeaderLength {
			return 0, false
		}
		return commandHeaderLength + int(a.b[3]), true
	default:
		if len(a.b) < aclHeaderLength {
			return 0, false
		}
		return aclHeaderLength + int(binary.LittleEndian.Uint16(a.b[3:5])), true
	}
}
