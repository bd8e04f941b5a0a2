package hci

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/blang/semver"
	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/hci/cmd"
	"github.com/rigado/sdc/hci/evt"
)

// Command ...
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// CommandRP ...
type CommandRP interface {
	Unmarshal(b []byte) error
}

const defaultCommandTimeout = 3 * time.Second

// maxCommandParams is the largest parameter length the one byte length field can carry.
const maxCommandParams = 255

// coreVersions maps the HCI version field to the Bluetooth core release [Assigned Numbers, 2.1].
var coreVersions = map[uint8]string{
	0x06: "4.0.0",
	0x07: "4.1.0",
	0x08: "4.2.0",
	0x09: "5.0.0",
	0x0A: "5.1.0",
	0x0B: "5.2.0",
	0x0C: "5.3.0",
	0x0D: "5.4.0",
	0x0E: "6.0.0",
}

// Client issues HCI commands over a Transport and waits for their completion.
// Only one command is outstanding at a time. Frames that do not complete the
// outstanding command are passed to the packet handler.
type Client struct {
	t       *Transport
	logger  sdc.Logger
	handler func(p []byte)
	timeout time.Duration

	b [writeBufferSize]byte
}

// NewClient returns a client over t.
func NewClient(t *Transport) *Client {
	return &Client{
		t:       t,
		logger:  sdc.GetLogger().ChildLogger(map[string]interface{}{"component": "hci"}),
		timeout: defaultCommandTimeout,
	}
}

// SetPacketHandler sets the handler for frames unrelated to the outstanding command.
func (c *Client) SetPacketHandler(fn func(p []byte)) {
	c.handler = fn
}

// SetCommandTimeout bounds how long Send waits for a response when ctx has no deadline.
func (c *Client) SetCommandTimeout(d time.Duration) {
	c.timeout = d
}

// Send sends a command and unmarshals its return parameters into r, if not nil.
func (c *Client) Send(ctx context.Context, cm Command, r CommandRP) error {
	b, err := c.send(ctx, cm)
	if err != nil {
		return err
	}
	if len(b) > 0 && b[0] != 0x00 {
		return ErrCommand(b[0])
	}
	if r != nil {
		return errors.Wrapf(r.Unmarshal(b), "can't unmarshal response to %04x", cm.OpCode())
	}
	return nil
}

func (c *Client) send(ctx context.Context, cm Command) ([]byte, error) {
	if cm.Len() > maxCommandParams {
		return nil, fmt.Errorf("command %04x parameters too long: %d bytes", cm.OpCode(), cm.Len())
	}
	n := commandHeaderLength + cm.Len()
	if n > len(c.b) {
		return nil, fmt.Errorf("command %04x too long: %d bytes", cm.OpCode(), n)
	}

	//HCI header
	b := c.b[:n]
	b[0] = PktTypeCommand
	b[1] = byte(cm.OpCode())
	b[2] = byte(cm.OpCode() >> 8)
	b[3] = byte(cm.Len())
	if err := cm.Marshal(b[commandHeaderLength:]); err != nil {
		return nil, errors.Wrap(err, "can't marshal cmd")
	}

	c.logger.Debugf("cmd % X", b)
	if err := c.t.WritePacket(b); err != nil {
		return nil, errors.Wrap(err, "can't send cmd")
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	for {
		p, err := c.t.ReadPacket(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "no response to cmd %04x", cm.OpCode())
		}

		ret, done, err := match(cm.OpCode(), p)
		if err != nil {
			return nil, err
		}
		if done {
			return ret, nil
		}
		c.dispatch(p)
	}
}

func (c *Client) dispatch(p []byte) {
	if c.handler == nil {
		c.logger.Debugf("unhandled packet % X", p)
		return
	}
	c.handler(p)
}

// match reports whether packet p completes the command with opcode op and returns its return parameters.
func match(op int, p []byte) ([]byte, bool, error) {
	if p[0] != PktTypeEvent || len(p) < eventHeaderLength {
		return nil, false, nil
	}

	code, params := p[1], p[eventHeaderLength:]
	switch code {
	case evt.CommandCompleteCode:
		e := evt.CommandComplete(params)
		opc, err := e.CommandOpcodeWErr()
		if err != nil {
			return nil, false, fmt.Errorf("invalid command complete: % X", p)
		}
		if int(opc) != op {
			return nil, false, nil
		}
		ret, err := e.ReturnParametersWErr()
		return ret, true, err

	case evt.CommandStatusCode:
		e := evt.CommandStatus(params)
		if !e.Valid() {
			return nil, false, fmt.Errorf("invalid command status: % X", p)
		}
		if int(e.CommandOpcode()) != op {
			return nil, false, nil
		}
		return []byte{e.Status()}, true, nil
	}

	return nil, false, nil
}

// Info is what the host learns about the controller during Init.
type Info struct {
	Addr         net.HardwareAddr
	BufSize      int
	BufCnt       int
	HCIVersion   semver.Version
	Manufacturer uint16
}

// Init resets the controller and reads back its address, buffers and version.
func (c *Client) Init(ctx context.Context) (Info, error) {
	var info Info

	c.logger.Info("hci reset")
	if err := c.Send(ctx, &cmd.Reset{}, nil); err != nil {
		return info, errors.Wrap(err, "reset")
	}

	if err := c.Send(ctx, &cmd.SetEventMask{EventMask: 0x3dbff807fffbffff}, nil); err != nil {
		return info, errors.Wrap(err, "set event mask")
	}

	if err := c.Send(ctx, &cmd.LESetEventMask{LEEventMask: 0x000000000000001F}, nil); err != nil {
		return info, errors.Wrap(err, "le set event mask")
	}

	ReadBDADDRRP := cmd.ReadBDADDRRP{}
	if err := c.Send(ctx, &cmd.ReadBDADDR{}, &ReadBDADDRRP); err != nil {
		return info, errors.Wrap(err, "read bdaddr")
	}
	a := ReadBDADDRRP.BDADDR
	info.Addr = net.HardwareAddr([]byte{a[5], a[4], a[3], a[2], a[1], a[0]})

	LEReadBufferSizeRP := cmd.LEReadBufferSizeRP{}
	if err := c.Send(ctx, &cmd.LEReadBufferSize{}, &LEReadBufferSizeRP); err != nil {
		return info, errors.Wrap(err, "le read buffer size")
	}
	info.BufCnt = int(LEReadBufferSizeRP.HCTotalNumLEDataPackets)
	info.BufSize = int(LEReadBufferSizeRP.HCLEDataPacketLength)

	v, rp, err := c.Version(ctx)
	if err != nil {
		return info, err
	}
	info.HCIVersion = v
	info.Manufacturer = rp.ManufacturerName

	return info, nil
}

// Version reads the controller's HCI version as a core specification release.
func (c *Client) Version(ctx context.Context) (semver.Version, cmd.ReadLocalVersionInformationRP, error) {
	rp := cmd.ReadLocalVersionInformationRP{}
	if err := c.Send(ctx, &cmd.ReadLocalVersionInformation{}, &rp); err != nil {
		return semver.Version{}, rp, errors.Wrap(err, "read local version")
	}

	s, ok := coreVersions[rp.HCIVersion]
	if !ok {
		return semver.Version{}, rp, fmt.Errorf("unknown hci version 0x%02X", rp.HCIVersion)
	}
	return semver.MustParse(s), rp, nil
}

// CheckVersion fails unless the controller's HCI version satisfies the range expression, e.g. ">=5.0.0".
func (c *Client) CheckVersion(ctx context.Context, expr string) (semver.Version, error) {
	r, err := semver.ParseRange(expr)
	if err != nil {
		return semver.Version{}, errors.Wrapf(err, "invalid version range %q", expr)
	}

	v, _, err := c.Version(ctx)
	if err != nil {
		return v, err
	}
	if !r(v) {
		return v, fmt.Errorf("controller hci version %s does not satisfy %q", v, expr)
	}
	return v, nil
}

// Rand asks the controller for 8 random bytes.
func (c *Client) Rand(ctx context.Context) (uint64, error) {
	rp := cmd.LERandRP{}
	if err := c.Send(ctx, &cmd.LERand{}, &rp); err != nil {
		return 0, errors.Wrap(err, "le rand")
	}
	return rp.RandomNumber, nil
}
