package h4

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/rigado/sdc"
)

// DefaultSerialOptions returns the UART settings used by nRF connectivity firmware.
func DefaultSerialOptions(port string) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:          port,
		BaudRate:          1000000,
		DataBits:          8,
		StopBits:          1,
		ParityMode:        serial.PARITY_NONE,
		RTSCTSFlowControl: true,
	}
}

// OpenSerial opens a UART for use as the host side of a Bridge.
func OpenSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// reads must return periodically so the bridge can stop
	opts.MinimumReadSize = 0
	opts.InterCharacterTimeout = 100

	sdc.GetLogger().Infof("opening %s at %d baud", opts.PortName, opts.BaudRate)
	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", opts.PortName)
	}
	return sp, nil
}
