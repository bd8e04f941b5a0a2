// +build linux

// Package vhci registers a virtual HCI controller with the Linux kernel, so
// its Bluetooth stack can drive the controller through a Bridge.
package vhci

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/rigado/sdc"
)

const (
	devicePath     = "/dev/vhci"
	readTimeout    = 1000
	createTimeout  = 1000
	unixPollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn = int16(unix.POLLIN)

	vendorPacket = 0xff
	typePrimary  = 0x00
)

// Device is a virtual HCI controller as ReadWriteCloser. Reads return one
// packet from the kernel, writes must carry one whole packet each.
type Device struct {
	fd    int
	index uint16

	rmu  sync.Mutex
	wmu  sync.Mutex
	done chan int
	cmu  sync.Mutex
}

// Open creates a new primary controller, hciN, backed by the returned device.
func Open() (*Device, error) {
	fd, err := unix.Open(devicePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", devicePath)
	}

	if _, err := unix.Write(fd, []byte{vendorPacket, typePrimary}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't create vhci device")
	}

	// the kernel answers with the vendor packet, the type and the new index
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unixPollDataIn}}
	if _, err := unix.Poll(pfds, createTimeout); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't poll vhci")
	}
	if pfds[0].Revents&unixPollDataIn == 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("no response from vhci: poll events 0x%04x", pfds[0].Revents)
	}

	b := make([]byte, 4)
	n, err := unix.Read(fd, b)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't read vhci response")
	}
	if n != 4 || b[0] != vendorPacket || b[1] != typePrimary {
		unix.Close(fd)
		return nil, fmt.Errorf("unexpected vhci response % X", b[:n])
	}

	d := &Device{
		fd:    fd,
		index: uint16(b[2]) | uint16(b[3])<<8,
		done:  make(chan int),
	}
	sdc.GetLogger().Infof("vhci: created hci%d", d.index)
	return d, nil
}

// Index returns the kernel's index for the device, as in hciN.
func (d *Device) Index() int {
	return int(d.index)
}

func (d *Device) Read(p []byte) (int, error) {
	if !d.isOpen() {
		return 0, io.EOF
	}

	var err error
	n := 0
	d.rmu.Lock()
	defer d.rmu.Unlock()
	pfds := []unix.PollFd{{Fd: int32(d.fd), Events: unixPollDataIn}}
	unix.Poll(pfds, readTimeout)
	evts := pfds[0].Revents

	switch {
	case evts&unixPollErrors != 0:
		sdc.GetLogger().Errorf("vhci error: poll events 0x%04x", evts)
		return 0, io.EOF

	case evts&unixPollDataIn != 0:
		n, err = unix.Read(d.fd, p)

	default:
		// read timeout
		return 0, nil
	}

	if !d.isOpen() {
		return 0, io.EOF
	}
	return n, errors.Wrap(err, "can't read vhci")
}

func (d *Device) Write(p []byte) (int, error) {
	if !d.isOpen() {
		return 0, io.EOF
	}

	d.wmu.Lock()
	defer d.wmu.Unlock()
	n, err := unix.Write(d.fd, p)
	return n, errors.Wrap(err, "can't write vhci")
}

// Close removes the controller from the kernel.
func (d *Device) Close() error {
	d.cmu.Lock()
	defer d.cmu.Unlock()

	select {
	case <-d.done:
		return nil

	default:
		close(d.done)
		d.rmu.Lock()
		err := unix.Close(d.fd)
		d.rmu.Unlock()

		return errors.Wrap(err, "can't close vhci")
	}
}

func (d *Device) isOpen() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}
