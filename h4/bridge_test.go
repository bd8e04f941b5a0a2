package h4

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/hci"
	"github.com/rigado/sdc/wake"
)

// echoController completes every command and echoes ACL data.
type echoController struct {
	mu      sync.Mutex
	packets [][]byte
	busy    int
	events  *wake.Waker
}

func (c *echoController) TryGet(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.packets) == 0 {
		return 0, sdc.ErrAgain
	}
	copy(b, c.packets[0])
	c.packets = c.packets[1:]
	return len(b), nil
}

func (c *echoController) queue(p []byte) error {
	c.mu.Lock()
	if c.busy > 0 {
		c.busy--
		c.mu.Unlock()
		time.AfterFunc(5*time.Millisecond, c.events.Wake)
		return sdc.ErrAgain
	}
	c.packets = append(c.packets, p)
	c.mu.Unlock()
	c.events.Wake()
	return nil
}

func (c *echoController) CommandPut(b []byte) error {
	return c.queue([]byte{hci.PktTypeEvent, 0x0E, 0x04, 0x01, b[0], b[1], 0x00})
}

func (c *echoController) DataPut(b []byte) error {
	return c.queue(append([]byte{hci.PktTypeACLData}, b...))
}

func (c *echoController) Events() *wake.Waker {
	return c.events
}

func runBridge(t *testing.T, c *echoController) net.Conn {
	host, dev := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewBridge(dev, hci.NewTransport(c)).Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		host.Close()
		if err := <-done; err != context.Canceled {
			t.Errorf("expected canceled, got %v", err)
		}
		dev.Close()
	})
	return host
}

func readFrame(t *testing.T, r io.Reader, n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		t.Fatalf("read: %v", err)
	}
	return b
}

func TestBridgeCommand(t *testing.T) {
	host := runBridge(t, &echoController{events: wake.New()})
	host.SetDeadline(time.Now().Add(time.Second))

	if _, err := host.Write([]byte{0x01, 0x03}); err != nil {
		t.Fatal(err)
	}
	if _, err := host.Write([]byte{0x0C, 0x00}); err != nil {
		t.Fatal(err)
	}

	exp := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	if got := readFrame(t, host, len(exp)); !bytes.Equal(got, exp) {
		t.Fatalf("expected % X, got % X", exp, got)
	}
}

func TestBridgeACL(t *testing.T) {
	host := runBridge(t, &echoController{events: wake.New()})
	host.SetDeadline(time.Now().Add(time.Second))

	acl := []byte{0x02, 0x40, 0x00, 0x02, 0x00, 0xAB, 0xCD}
	if _, err := host.Write(acl); err != nil {
		t.Fatal(err)
	}
	if got := readFrame(t, host, len(acl)); !bytes.Equal(got, acl) {
		t.Fatalf("expected % X, got % X", acl, got)
	}
}

func TestBridgeControllerBusy(t *testing.T) {
	host := runBridge(t, &echoController{events: wake.New(), busy: 2})
	host.SetDeadline(time.Now().Add(time.Second))

	if _, err := host.Write([]byte{0x01, 0x03, 0x0C, 0x00, 0x01, 0x01, 0x10, 0x00}); err != nil {
		t.Fatal(err)
	}

	exp := []byte{
		0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00,
		0x04, 0x0E, 0x04, 0x01, 0x01, 0x10, 0x00,
	}
	if got := readFrame(t, host, len(exp)); !bytes.Equal(got, exp) {
		t.Fatalf("expected % X, got % X", exp, got)
	}
}
