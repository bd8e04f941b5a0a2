// Package hci frames the controller's packet primitives into an H4 style byte stream.
package hci

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/wake"
)

// Controller is what the transport needs from the controller handle.
type Controller interface {
	TryGet(b []byte) (int, error)
	CommandPut(b []byte) error
	DataPut(b []byte) error
	Events() *wake.Waker
}

// Transport turns whole packets from the controller into a tagged byte stream
// and tagged bytes back into packet submissions. Every frame starts with its
// packet type byte. A Transport is used from task context only and is not
// safe for concurrent use.
type Transport struct {
	c Controller

	rbuf [readBufferSize]byte
	rpos int
	rlen int

	wbuf [writeBufferSize]byte
	wpos int
}

// NewTransport returns a transport over c.
func NewTransport(c Controller) *Transport {
	return &Transport{c: c}
}

// Read copies buffered frame bytes into p. Once the current frame is drained
// it fetches the next packet from the controller. When the controller has
// nothing queued Read returns 0, nil and leaves its state untouched, so callers
// can wait for the next wake and retry.
func (t *Transport) Read(p []byte) (int, error) {
	if t.rpos == t.rlen {
		err := t.fetch()
		switch {
		case sdc.IsAgain(err):
			return 0, nil
		case err != nil:
			return 0, err
		}
	}

	n := copy(p, t.rbuf[t.rpos:t.rlen])
	t.rpos += n
	return n, nil
}

// ReadContext is Read, waiting on the controller's event waker until at least one byte is copied.
func (t *Transport) ReadContext(ctx context.Context, p []byte) (int, error) {
	for {
		n, err := t.Read(p)
		if err != nil || n > 0 || len(p) == 0 {
			return n, err
		}
		if err := t.c.Events().Wait(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadPacket returns the rest of the current frame, or the next whole frame
// if the current one is drained, waiting for the controller as needed.
func (t *Transport) ReadPacket(ctx context.Context) ([]byte, error) {
	for t.rpos == t.rlen {
		err := t.fetch()
		if err == nil {
			break
		}
		if !sdc.IsAgain(err) {
			return nil, err
		}
		if err := t.c.Events().Wait(ctx); err != nil {
			return nil, err
		}
	}

	p := make([]byte, t.rlen-t.rpos)
	copy(p, t.rbuf[t.rpos:t.rlen])
	t.rpos = t.rlen
	return p, nil
}

// Events returns the controller's event waker.
func (t *Transport) Events() *wake.Waker {
	return t.c.Events()
}

// Buffered returns the number of bytes of the current frame not yet read.
func (t *Transport) Buffered() int {
	return t.rlen - t.rpos
}

func (t *Transport) fetch() error {
	if _, err := t.c.TryGet(t.rbuf[:]); err != nil {
		return err
	}

	l, err := frameLength(t.rbuf[:])
	if err != nil {
		t.rpos, t.rlen = 0, 0
		return err
	}
	t.rpos, t.rlen = 0, l
	return nil
}

// frameLength returns the length of the frame starting at b[0], type byte included.
func frameLength(b []byte) (int, error) {
	var l int
	switch b[0] {
	case PktTypeEvent:
		l = eventHeaderLength + int(b[2])
	case PktTypeACLData:
		l = aclHeaderLength + int(binary.LittleEndian.Uint16(b[3:5]))
	case PktTypeCommand:
		l = 1
	default:
		return 0, errors.Wrapf(sdc.ErrFraming, "invalid packet type 0x%02X", b[0])
	}

	if l > len(b) {
		return 0, errors.Wrapf(sdc.ErrFraming, "packet type 0x%02X length %d exceeds %d byte buffer", b[0], l, len(b))
	}
	return l, nil
}

// Write appends b to the frame being built. The first byte written after a
// Flush is the packet type. Writing past the frame buffer is a programming
// error and panics.
func (t *Transport) Write(b []byte) (int, error) {
	if t.wpos+len(b) > len(t.wbuf) {
		panic(fmt.Sprintf("hci: %d byte write overflows frame buffer (%d of %d used)", len(b), t.wpos, len(t.wbuf)))
	}

	n := copy(t.wbuf[t.wpos:], b)
	t.wpos += n
	return n, nil
}

// Flush submits the buffered frame to the controller, routed by its type byte,
// and empties the buffer. Flushing an empty buffer panics.
func (t *Transport) Flush() error {
	if t.wpos == 0 {
		panic("hci: flush with no frame buffered")
	}

	var err error
	switch t.wbuf[0] {
	case PktTypeCommand:
		err = t.c.CommandPut(t.wbuf[1:t.wpos])
	case PktTypeACLData:
		err = t.c.DataPut(t.wbuf[1:t.wpos])
	default:
		return errors.Wrapf(sdc.ErrUnsupportedFrameType, "type 0x%02X", t.wbuf[0])
	}
	if err != nil {
		return errors.Wrap(err, "can't submit frame")
	}

	t.wpos = 0
	return nil
}

// WritePacket writes one whole tagged frame and flushes it.
func (t *Transport) WritePacket(b []byte) error {
	if _, err := t.Write(b); err != nil {
		return err
	}
	return t.Flush()
}

// Discard drops a partially built frame.
func (t *Transport) Discard() {
	t.wpos = 0
}
