package sdc

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// DefaultScratchSize is the scratch buffer handed to the controller when none is configured.
const DefaultScratchSize = 65536

// LfClockSource selects the low frequency clock driving the radio timing.
type LfClockSource uint8

const (
	LfClockRC    LfClockSource = 0
	LfClockXtal  LfClockSource = 1
	LfClockSynth LfClockSource = 2
)

var lfClockNames = map[LfClockSource]string{
	LfClockRC:    "rc",
	LfClockXtal:  "xtal",
	LfClockSynth: "synth",
}

func (s LfClockSource) String() string {
	if n, ok := lfClockNames[s]; ok {
		return n
	}
	return fmt.Sprintf("lfclk(%d)", uint8(s))
}

func (s LfClockSource) MarshalText() ([]byte, error) {
	if n, ok := lfClockNames[s]; ok {
		return []byte(n), nil
	}
	return nil, fmt.Errorf("invalid clock source %d", uint8(s))
}

func (s *LfClockSource) UnmarshalText(b []byte) error {
	v := strings.ToLower(string(b))
	for k, n := range lfClockNames {
		if n == v {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("invalid clock source %q", v)
}

// ClockConfig describes the low frequency clock. It is consumed once by mpsl.Init.
type ClockConfig struct {
	Source      LfClockSource `json:"source"`
	RCCtiv      uint8         `json:"rc_ctiv"`
	RCTempCtiv  uint8         `json:"rc_temp_ctiv"`
	AccuracyPPM uint16        `json:"accuracy_ppm"`
	SkipWait    bool          `json:"skip_wait"`
}

// Validate rejects clock settings the MPSL would refuse.
func (c ClockConfig) Validate() error {
	if _, ok := lfClockNames[c.Source]; !ok {
		return fmt.Errorf("invalid clock source %d", uint8(c.Source))
	}
	if c.Source == LfClockRC && c.RCCtiv == 0 {
		return fmt.Errorf("rc clock source requires a nonzero calibration interval")
	}
	if c.AccuracyPPM == 0 {
		return fmt.Errorf("clock accuracy must be nonzero")
	}
	return nil
}

// Seed feeds the controller's random generator.
type Seed [32]byte

func (s Seed) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

func (s *Seed) UnmarshalText(b []byte) error {
	v, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.Wrap(err, "can't decode seed")
	}
	if len(v) != len(s) {
		return fmt.Errorf("seed must be %d bytes, got %d", len(s), len(v))
	}
	copy(s[:], v)
	return nil
}

// Role is a link layer role the controller can be configured for.
type Role int

const (
	RoleAdvertiser Role = iota
	RolePeripheral
	RoleCentral
)

func (r Role) String() string {
	switch r {
	case RoleAdvertiser:
		return "advertiser"
	case RolePeripheral:
		return "peripheral"
	case RoleCentral:
		return "central"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// RoleConfig holds the number of instances per role. A zero count leaves the role undeclared.
type RoleConfig struct {
	Advertiser uint8 `json:"advertiser"`
	Peripheral uint8 `json:"peripheral"`
	Central    uint8 `json:"central"`
}

// Count returns the configured count for r.
func (rc RoleConfig) Count(r Role) uint8 {
	switch r {
	case RoleAdvertiser:
		return rc.Advertiser
	case RolePeripheral:
		return rc.Peripheral
	case RoleCentral:
		return rc.Central
	}
	return 0
}

// Used lists the roles with a nonzero count, in declaration order.
func (rc RoleConfig) Used() []Role {
	var rr []Role
	for _, r := range []Role{RoleAdvertiser, RolePeripheral, RoleCentral} {
		if rc.Count(r) != 0 {
			rr = append(rr, r)
		}
	}
	return rr
}

// Config is the full startup configuration.
type Config struct {
	Seed          Seed        `json:"seed"`
	Clock         ClockConfig `json:"clock"`
	Roles         RoleConfig  `json:"roles"`
	ScratchSize   int         `json:"scratch_size"`
	MinHCIVersion string      `json:"min_hci_version,omitempty"`
	LogLevel      string      `json:"log_level,omitempty"`
}

// DefaultConfig returns a crystal clocked controller with every role enabled once.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			Source:      LfClockXtal,
			AccuracyPPM: 250,
		},
		Roles: RoleConfig{
			Advertiser: 1,
			Peripheral: 1,
			Central:    1,
		},
		ScratchSize: DefaultScratchSize,
	}
}

// Validate checks the configuration before any controller call is made.
func (c Config) Validate() error {
	if err := c.Clock.Validate(); err != nil {
		return errors.Wrap(err, "clock")
	}
	if len(c.Roles.Used()) == 0 {
		return fmt.Errorf("no roles configured")
	}
	if c.ScratchSize <= 0 {
		return fmt.Errorf("invalid scratch size %d", c.ScratchSize)
	}
	return nil
}

// LoadConfig reads a JSON config file. Fields missing from the file keep their DefaultConfig values.
func LoadConfig(filename string) (Config, error) {
	c := DefaultConfig()

	in, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "can't read config")
	}

	if err := jsoniter.Unmarshal(in, &c); err != nil {
		return Config{}, errors.Wrapf(err, "can't parse config %s", filename)
	}

	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", filename)
	}
	return c, nil
}

// StoreConfig writes c as JSON.
func StoreConfig(filename string, c Config) error {
	out, err := jsoniter.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(filename, out, 0644)
}
