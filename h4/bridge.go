// Package h4 carries the controller's HCI traffic over an H4 byte stream such
// as a UART or a virtual HCI device.
package h4

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/hci"
)

const (
	rxQueueSize = 64
	readSize    = 512
)

// Bridge pumps frames between a host byte stream and the controller transport.
type Bridge struct {
	rw     io.ReadWriter
	t      *hci.Transport
	logger sdc.Logger

	rxQueue chan []byte
	rxErr   chan error
	asm     *assembler
	frames  [][]byte

	buf [readSize]byte
}

// NewBridge returns a bridge between the host stream rw and t.
func NewBridge(rw io.ReadWriter, t *hci.Transport) *Bridge {
	b := &Bridge{
		rw:      rw,
		t:       t,
		logger:  sdc.GetLogger().ChildLogger(map[string]interface{}{"component": "h4"}),
		rxQueue: make(chan []byte, rxQueueSize),
		rxErr:   make(chan error, 1),
	}
	b.asm = newAssembler(func(f []byte) { b.frames = append(b.frames, f) })
	return b
}

// Run bridges until ctx is done or either side fails. The transport is only
// touched from the calling goroutine.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.rxLoop(ctx)

	events := b.t.Events()
	stalled := false
	for {
		if err := b.drain(); err != nil {
			return err
		}

		if stalled {
			// controller queue was full, retry once it has done some work
			err := b.t.Flush()
			switch {
			case sdc.IsAgain(err):
			case err != nil:
				return err
			default:
				stalled = false
			}
		}

		rx := b.rxQueue
		if stalled {
			rx = nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-b.rxErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		case <-events.C():
		case f := <-rx:
			b.logger.Debugf("host -> controller % X", f)
			err := b.t.WritePacket(f)
			switch {
			case sdc.IsAgain(err):
				stalled = true
			case errors.Cause(err) == sdc.ErrUnsupportedFrameType:
				b.logger.Warnf("dropping frame: %v", err)
				b.t.Discard()
			case err != nil:
				return err
			}
		}
	}
}

// drain forwards everything the controller has queued to the host.
func (b *Bridge) drain() error {
	for {
		n, err := b.t.Read(b.buf[:])
		if err != nil {
			return errors.Wrap(err, "can't read controller")
		}
		if n == 0 {
			return nil
		}
		b.logger.Debugf("controller -> host % X", b.buf[:n])
		if _, err := b.rw.Write(b.buf[:n]); err != nil {
			return errors.Wrap(err, "can't write host")
		}
	}
}

func (b *Bridge) rxLoop(ctx context.Context) {
	tmp := make([]byte, readSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := b.rw.Read(tmp)
		if err != nil {
			b.rxErr <- errors.Wrap(err, "can't read host")
			return
		}
		b.asm.Assemble(tmp[:n])
		for _, f := range b.frames {
			select {
			case b.rxQueue <- f:
			case <-ctx.Done():
				return
			}
		}
		b.frames = b.frames[:0]
	}
}
