// Package controller brings up the link layer controller and owns it for the rest of the process.
package controller

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/rigado/sdc"
	"github.com/rigado/sdc/raw"
	"github.com/rigado/sdc/wake"
)

// RoleMemory is the memory reported by the controller when a role count was configured.
type RoleMemory struct {
	Role  sdc.Role
	Count uint8
	Size  int
}

// Memory is the outcome of the resource negotiation.
type Memory struct {
	Roles    []RoleMemory
	Required int
	Provided int
}

// Incremental sums the per role sizes returned while configuring counts.
func (m Memory) Incremental() int {
	var n int
	for _, r := range m.Roles {
		n += r.Size
	}
	return n
}

// Controller is the single handle to the link layer controller. It is built
// once at startup and passed to every component that talks to the controller.
type Controller struct {
	sdc    raw.SDC
	logger sdc.Logger
	fault  func(file string, line uint32)
	roles  sdc.RoleConfig

	rng    *rng
	events *wake.Waker

	mem     Memory
	scratch []byte
	enabled int32
}

// New returns an uninitialized controller handle. Init must be called before any HCI traffic.
func New(s raw.SDC, opts ...sdc.Option) (*Controller, error) {
	c := &Controller{
		sdc:    s,
		roles:  sdc.DefaultConfig().Roles,
		events: wake.New(),
	}
	if err := c.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	if c.logger == nil {
		c.logger = sdc.GetLogger().ChildLogger(map[string]interface{}{"component": "sdc"})
	}
	return c, nil
}

// Option sets the options specified.
func (c *Controller) Option(opts ...sdc.Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// SetLogger ...
func (c *Controller) SetLogger(l sdc.Logger) error {
	c.logger = l
	return nil
}

// SetFaultHandler ...
func (c *Controller) SetFaultHandler(handler func(file string, line uint32)) error {
	c.fault = handler
	return nil
}

// SetRoles ...
func (c *Controller) SetRoles(rc sdc.RoleConfig) error {
	if len(rc.Used()) == 0 {
		return fmt.Errorf("no roles configured")
	}
	c.roles = rc
	return nil
}

// SetHFClkHandler is not supported
func (c *Controller) SetHFClkHandler(func()) error {
	return errors.New("Not supported")
}

// Init seeds the random source, negotiates the role resources and enables the
// controller with scratch as its working memory. It must be called exactly once
// per process; scratch belongs to the controller afterwards.
func (c *Controller) Init(seed sdc.Seed, scratch []byte) error {
	var err error
	if c.rng, err = newRNG(seed); err != nil {
		return err
	}

	if err = sdc.Reject("sdc_init", c.sdc.Init(c.onFault)); err != nil {
		return err
	}

	src := raw.RandSource{
		Poll:     c.rng.fill,
		PrioHigh: c.randPrio,
		PrioLow:  c.randPrio,
	}
	if err = sdc.Reject("sdc_rand_source_register", c.sdc.RandSourceRegister(src)); err != nil {
		return err
	}

	used := c.roles.Used()
	for _, r := range used {
		if err = c.support(r); err != nil {
			return err
		}
	}

	c.mem = Memory{Provided: len(scratch)}
	for _, r := range used {
		n := c.roles.Count(r)
		ret := c.sdc.CfgSet(raw.DefaultResourceCfgTag, cfgType(r), &raw.Cfg{Count: n})
		if ret < 0 {
			return &sdc.RejectedError{Op: fmt.Sprintf("sdc_cfg_set(%s)", r), Code: sdc.Error(ret)}
		}
		c.mem.Roles = append(c.mem.Roles, RoleMemory{Role: r, Count: n, Size: int(ret)})
		c.logger.Debugf("[sdc] %s count %d: %d bytes", r, n, ret)
	}

	wanted := c.sdc.CfgSet(raw.DefaultResourceCfgTag, raw.CfgTypeNone, nil)
	if wanted < 0 {
		return &sdc.RejectedError{Op: "sdc_cfg_set(none)", Code: sdc.Error(wanted)}
	}
	c.mem.Required = int(wanted)
	if c.mem.Required > len(scratch) {
		return errors.Wrapf(sdc.ErrInsufficientMemory, "controller wants %d bytes, scratch is %d", wanted, len(scratch))
	}
	c.logger.Infof("[sdc] enable (mem %d)", wanted)

	if err = sdc.Reject("sdc_enable", c.sdc.Enable(c.events.Wake, scratch)); err != nil {
		return err
	}
	c.scratch = scratch
	atomic.StoreInt32(&c.enabled, 1)

	c.logger.Info("[sdc] init done")
	return nil
}

func (c *Controller) support(r sdc.Role) error {
	switch r {
	case sdc.RoleAdvertiser:
		return sdc.Reject("sdc_support_adv", c.sdc.SupportAdvertiser())
	case sdc.RolePeripheral:
		return sdc.Reject("sdc_support_peripheral", c.sdc.SupportPeripheral())
	case sdc.RoleCentral:
		return sdc.Reject("sdc_support_central", c.sdc.SupportCentral())
	default:
		return fmt.Errorf("unknown role %v", r)
	}
}

func cfgType(r sdc.Role) uint8 {
	switch r {
	case sdc.RoleAdvertiser:
		return raw.CfgTypeAdvCount
	case sdc.RolePeripheral:
		return raw.CfgTypePeripheralCount
	default:
		return raw.CfgTypeCentralCount
	}
}

func (c *Controller) randPrio(b []byte) uint8 {
	c.rng.fill(b)
	return uint8(len(b))
}

func (c *Controller) onFault(file string, line uint32) {
	if c.fault != nil {
		c.fault(file, line)
		return
	}
	e := &sdc.FaultError{Source: "sdc", File: file, Line: line}
	c.logger.Error(e)
	panic(e)
}

// Rand fills b from the controller's random source. The source is seeded by
// Init; before that Rand fails with sdc.ErrNotPermitted and leaves b untouched.
func (c *Controller) Rand(b []byte) error {
	if c.rng == nil {
		return errors.Wrap(sdc.ErrNotPermitted, "controller not initialized")
	}
	c.rng.fill(b)
	return nil
}

// Events is woken by the controller whenever HCI events or data are queued.
func (c *Controller) Events() *wake.Waker {
	return c.events
}

// Memory returns the negotiated memory requirement.
func (c *Controller) Memory() Memory {
	return c.mem
}

// Enabled reports whether Init completed.
func (c *Controller) Enabled() bool {
	return atomic.LoadInt32(&c.enabled) == 1
}
