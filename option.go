package sdc

// DeviceOption is implemented by the controller and MPSL handles to accept configuration options.
type DeviceOption interface {
	SetLogger(Logger) error
	SetFaultHandler(handler func(file string, line uint32)) error
	SetRoles(RoleConfig) error
	SetHFClkHandler(handler func()) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptLogger replaces the package logger for one handle.
func OptLogger(l Logger) Option {
	return func(opt DeviceOption) error {
		return opt.SetLogger(l)
	}
}

// OptFaultHandler overrides the assertion handler. Outside of tests the handler must not return.
func OptFaultHandler(handler func(file string, line uint32)) Option {
	return func(opt DeviceOption) error {
		return opt.SetFaultHandler(handler)
	}
}

// OptRoles sets the roles declared during init.
func OptRoles(rc RoleConfig) Option {
	return func(opt DeviceOption) error {
		return opt.SetRoles(rc)
	}
}

// OptHFClkHandler sets the callback run once the high frequency clock is up.
func OptHFClkHandler(handler func()) Option {
	return func(opt DeviceOption) error {
		return opt.SetHFClkHandler(handler)
	}
}
