package controller

import (
	"context"
	"io"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/raw"
)

// GetBufferSize is the smallest buffer accepted by TryGet and Get.
const GetBufferSize = 1 + raw.HCIMsgBufferMaxSize

// CommandPut submits one HCI command, opcode and length included, without the type byte.
func (c *Controller) CommandPut(b []byte) error {
	c.logger.Debugf("[sdc] write cmd % X", b)
	return sdc.Status(c.sdc.HCICmdPut(b))
}

// DataPut submits one ACL data packet, header included, without the type byte.
func (c *Controller) DataPut(b []byte) error {
	c.logger.Debugf("[sdc] write data % X", b)
	return sdc.Status(c.sdc.HCIDataPut(b))
}

// TryGet fetches one pending packet without blocking. The message type is
// written to b[0] and the packet to b[1:]. It returns sdc.ErrAgain when the
// controller has nothing queued. The returned count is len(b); the packet
// length has to be taken from its header.
func (c *Controller) TryGet(b []byte) (int, error) {
	if len(b) < GetBufferSize {
		return 0, io.ErrShortBuffer
	}

	var typ uint8
	if err := sdc.Status(c.sdc.HCIGet(b[1:], &typ)); err != nil {
		return 0, err
	}
	c.logger.Debugf("[sdc] received packet type %d", typ)
	b[0] = typ
	return len(b), nil
}

// Get is TryGet, suspending on the event waker while the controller has nothing queued.
func (c *Controller) Get(ctx context.Context, b []byte) (int, error) {
	for {
		n, err := c.TryGet(b)
		if !sdc.IsAgain(err) {
			return n, err
		}
		if err := c.events.Wait(ctx); err != nil {
			return 0, err
		}
	}
}
