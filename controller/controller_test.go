package controller

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/raw"
)

type fakeSDC struct {
	mu    sync.Mutex
	calls []string
	ret   map[string]int32
	sizes map[uint8]int32
	total int32

	fault    raw.FaultHandler
	rand     raw.RandSource
	callback func()
	mem      []byte

	packets [][]byte
}

func newFakeSDC() *fakeSDC {
	return &fakeSDC{
		ret: map[string]int32{},
		sizes: map[uint8]int32{
			raw.CfgTypeAdvCount:        100,
			raw.CfgTypePeripheralCount: 200,
			raw.CfgTypeCentralCount:    300,
		},
		total: 4096,
	}
}

func (f *fakeSDC) call(name string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.ret[name]
}

func (f *fakeSDC) Init(fault raw.FaultHandler) int32 {
	f.fault = fault
	return f.call("init")
}

func (f *fakeSDC) Enable(cb func(), mem []byte) int32 {
	f.callback, f.mem = cb, mem
	return f.call("enable")
}

func (f *fakeSDC) RandSourceRegister(src raw.RandSource) int32 {
	f.rand = src
	return f.call("rand")
}

func (f *fakeSDC) SupportAdvertiser() int32 { return f.call("adv") }
func (f *fakeSDC) SupportPeripheral() int32 { return f.call("peripheral") }
func (f *fakeSDC) SupportCentral() int32    { return f.call("central") }

func (f *fakeSDC) CfgSet(tag, typ uint8, cfg *raw.Cfg) int32 {
	name := fmt.Sprintf("cfg(%d)", typ)
	if ret := f.call(name); ret != 0 {
		return ret
	}
	if typ == raw.CfgTypeNone {
		return f.total
	}
	return f.sizes[typ] * int32(cfg.Count)
}

func (f *fakeSDC) HCICmdPut(b []byte) int32  { return f.call("cmd") }
func (f *fakeSDC) HCIDataPut(b []byte) int32 { return f.call("data") }

func (f *fakeSDC) HCIGet(b []byte, typ *uint8) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.packets) == 0 {
		return int32(sdc.ErrAgain)
	}
	p := f.packets[0]
	f.packets = f.packets[1:]
	*typ = p[0]
	copy(b, p[1:])
	return 0
}

func (f *fakeSDC) push(p []byte) {
	f.mu.Lock()
	f.packets = append(f.packets, p)
	cb := f.callback
	f.mu.Unlock()
	cb()
}

func (f *fakeSDC) trace() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprint(f.calls)
}

func newController(t *testing.T, f *fakeSDC, opts ...sdc.Option) *Controller {
	c, err := New(f, opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestInitSequence(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f, sdc.OptRoles(sdc.RoleConfig{Advertiser: 1, Peripheral: 1}))

	scratch := make([]byte, sdc.DefaultScratchSize)
	if err := c.Init(sdc.Seed{}, scratch); err != nil {
		t.Fatalf("init: %v", err)
	}

	exp := "[init rand adv peripheral cfg(5) cfg(2) cfg(0) enable]"
	if got := f.trace(); got != exp {
		t.Fatalf("expected call order %s, got %s", exp, got)
	}

	m := c.Memory()
	if m.Incremental() != 300 {
		t.Fatalf("expected incremental 300, got %d", m.Incremental())
	}
	if m.Required != 4096 || m.Provided != len(scratch) {
		t.Fatalf("unexpected memory report %+v", m)
	}
	if &f.mem[0] != &scratch[0] {
		t.Fatal("enable did not receive the scratch buffer")
	}
	if !c.Enabled() {
		t.Fatal("controller not enabled")
	}
}

func TestInitDefaultRoles(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)

	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}
	exp := "[init rand adv peripheral central cfg(5) cfg(2) cfg(1) cfg(0) enable]"
	if got := f.trace(); got != exp {
		t.Fatalf("expected call order %s, got %s", exp, got)
	}
}

func TestInitInsufficientMemory(t *testing.T) {
	f := newFakeSDC()
	f.total = sdc.DefaultScratchSize + 1
	c := newController(t, f)

	err := c.Init(sdc.Seed{}, make([]byte, sdc.DefaultScratchSize))
	if !errors.Is(err, sdc.ErrInsufficientMemory) {
		t.Fatalf("expected insufficient memory, got %v", err)
	}
	for _, name := range f.calls {
		if name == "enable" {
			t.Fatal("enable called with undersized scratch")
		}
	}
	if c.Enabled() {
		t.Fatal("controller reports enabled")
	}
}

func TestInitRejected(t *testing.T) {
	tests := []struct {
		call string
		ret  int32
		op   string
		code error
	}{
		{"init", -1, "sdc_init", sdc.ErrNotPermitted},
		{"rand", -22, "sdc_rand_source_register", sdc.ErrInvalidArg},
		{"peripheral", -22, "sdc_support_peripheral", sdc.ErrInvalidArg},
		{"central", 1, "sdc_support_central", sdc.ErrOther},
		{"cfg(2)", -45, "sdc_cfg_set(peripheral)", sdc.ErrOpNotSupported},
		{"cfg(0)", -1, "sdc_cfg_set(none)", sdc.ErrNotPermitted},
		{"enable", -22, "sdc_enable", sdc.ErrInvalidArg},
	}

	for _, tt := range tests {
		f := newFakeSDC()
		f.ret[tt.call] = tt.ret
		c := newController(t, f)

		err := c.Init(sdc.Seed{}, make([]byte, 8192))
		if !errors.Is(err, sdc.ErrConfigurationRejected) {
			t.Fatalf("%s: expected rejection, got %v", tt.call, err)
		}
		if !errors.Is(err, tt.code) {
			t.Fatalf("%s: expected code %v, got %v", tt.call, tt.code, err)
		}

		var re *sdc.RejectedError
		if !errors.As(err, &re) || re.Op != tt.op {
			t.Fatalf("%s: expected op %s, got %v", tt.call, tt.op, err)
		}

		last := f.calls[len(f.calls)-1]
		if last != tt.call {
			t.Fatalf("%s: init continued after rejection: %v", tt.call, f.calls)
		}
	}
}

func TestCfgSetPositiveIsNotAnError(t *testing.T) {
	f := newFakeSDC()
	f.sizes[raw.CfgTypeAdvCount] = 0x7fff
	c := newController(t, f, sdc.OptRoles(sdc.RoleConfig{Advertiser: 2}))

	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}
	if got := c.Memory().Roles[0]; got.Size != 2*0x7fff || got.Count != 2 {
		t.Fatalf("unexpected role memory %+v", got)
	}
}

func TestRandSource(t *testing.T) {
	seed := sdc.Seed{1, 2, 3}

	draw := func() ([]byte, []byte, []byte) {
		f := newFakeSDC()
		c := newController(t, f)
		if err := c.Init(seed, make([]byte, 8192)); err != nil {
			t.Fatal(err)
		}
		a, b, d := make([]byte, 16), make([]byte, 16), make([]byte, 16)
		f.rand.Poll(a)
		if n := f.rand.PrioHigh(b); n != 16 {
			t.Fatalf("prio high returned %d", n)
		}
		if n := f.rand.PrioLow(d); n != 16 {
			t.Fatalf("prio low returned %d", n)
		}
		return a, b, d
	}

	a1, b1, c1 := draw()
	a2, b2, c2 := draw()
	if !bytes.Equal(a1, a2) || !bytes.Equal(b1, b2) || !bytes.Equal(c1, c2) {
		t.Fatal("same seed produced different streams")
	}
	if bytes.Equal(a1, b1) || bytes.Equal(b1, c1) {
		t.Fatal("hooks did not advance a shared generator")
	}

	// a constant fill would be a stub, not a generator
	if bytes.Count(a1, a1[:1]) == len(a1) {
		t.Fatalf("constant fill %x", a1)
	}
}

func TestRandConcurrent(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := make([]byte, 32)
			for j := 0; j < 100; j++ {
				f.rand.PrioHigh(b)
			}
		}()
	}
	wg.Wait()
}

func TestEventCallbackOnlyWakes(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	if c.Events().Pending() {
		t.Fatal("wake pending before callback")
	}
	f.callback()
	if !c.Events().Pending() {
		t.Fatal("callback did not wake")
	}
}

func TestDefaultFaultHandlerPanics(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	defer func() {
		r := recover()
		fe, ok := r.(*sdc.FaultError)
		if !ok {
			t.Fatalf("expected *sdc.FaultError panic, got %v", r)
		}
		if fe.File != "ll_ctrl.c" || fe.Line != 42 {
			t.Fatalf("unexpected fault %v", fe)
		}
	}()
	f.fault("ll_ctrl.c", 42)
	t.Fatal("fault handler returned")
}

func TestFaultHandlerOverride(t *testing.T) {
	var got string
	f := newFakeSDC()
	c := newController(t, f, sdc.OptFaultHandler(func(file string, line uint32) {
		got = fmt.Sprintf("%s:%d", file, line)
	}))
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}
	f.fault("x.c", 7)
	if got != "x.c:7" {
		t.Fatalf("override not called, got %q", got)
	}
}

func TestUnsupportedOption(t *testing.T) {
	_, err := New(newFakeSDC(), sdc.OptHFClkHandler(func() {}))
	if err == nil {
		t.Fatal("expected hfclk option to be rejected")
	}
	_, err = New(newFakeSDC(), sdc.OptRoles(sdc.RoleConfig{}))
	if err == nil {
		t.Fatal("expected empty role config to be rejected")
	}
}

func TestTryGet(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	b := make([]byte, GetBufferSize)
	if _, err := c.TryGet(b); !sdc.IsAgain(err) {
		t.Fatalf("expected again, got %v", err)
	}

	f.push([]byte{raw.HCIMsgTypeEvent, 0x0E, 0x01, 0xAA})
	n, err := c.TryGet(b)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(b) || !bytes.Equal(b[:4], []byte{0x04, 0x0E, 0x01, 0xAA}) {
		t.Fatalf("unexpected packet %d % X", n, b[:4])
	}

	if _, err := c.TryGet(make([]byte, 16)); err == nil {
		t.Fatal("expected short buffer error")
	}
}

func TestGetWaitsForEvent(t *testing.T) {
	f := newFakeSDC()
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.push([]byte{raw.HCIMsgTypeEvent, 0x0E, 0x00})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b := make([]byte, GetBufferSize)
	if _, err := c.Get(ctx, b); err != nil {
		t.Fatal(err)
	}
	if b[0] != raw.HCIMsgTypeEvent || b[1] != 0x0E {
		t.Fatalf("unexpected packet % X", b[:3])
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	if _, err := c.Get(ctx2, b); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestPutStatus(t *testing.T) {
	f := newFakeSDC()
	f.ret["cmd"] = int32(sdc.ErrAgain)
	c := newController(t, f)
	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}

	if err := c.CommandPut([]byte{0x03, 0x0C, 0x00}); !sdc.IsAgain(err) {
		t.Fatalf("expected again, got %v", err)
	}
	if err := c.DataPut([]byte{0x01, 0x00, 0x00, 0x00}); err != nil {
		t.Fatal(err)
	}
}

func TestRandBeforeInit(t *testing.T) {
	c := newController(t, newFakeSDC())

	b := []byte{0xAA, 0xAA}
	if err := c.Rand(b); !errors.Is(err, sdc.ErrNotPermitted) {
		t.Fatalf("expected not permitted, got %v", err)
	}
	if !bytes.Equal(b, []byte{0xAA, 0xAA}) {
		t.Fatalf("buffer modified: % X", b)
	}

	if err := c.Init(sdc.Seed{}, make([]byte, 8192)); err != nil {
		t.Fatal(err)
	}
	b = make([]byte, 16)
	if err := c.Rand(b); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(b, make([]byte, 16)) {
		t.Fatal("rand left buffer zeroed")
	}
}
