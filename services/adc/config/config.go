package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Limits of the topology.
const (
	MaxBuses       = 4
	MaxChipsPerBus = 2
	MaxChannels    = 4
)

// Config describes the driver topology and behaviour.
type Config struct {
	// Backend names the platform backend ("sim", "linux"); the CLI may override it.
	Backend string `yaml:"backend"`
	// ReadPolicy is "await_alarm" (default) or "immediate".
	ReadPolicy string `yaml:"read_policy"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`

	Buses      []Bus       `yaml:"buses"`
	AlarmLines []AlarmLine `yaml:"alarm_lines"`

	// Sim tunes the "sim" backend only.
	Sim Sim `yaml:"sim"`
}

// Bus is one I2C bus with its chips.
type Bus struct {
	ID int `yaml:"id"`
	// Device is the platform bus name (e.g. "/dev/i2c-1", "I2C1"). Defaults to the ID.
	Device string `yaml:"device"`
	Chips  []Chip `yaml:"chips"`
}

// Chip is one ADS7924 and the inputs that are wired.
type Chip struct {
	Address  uint16 `yaml:"address"`
	Channels []int  `yaml:"channels"`
}

// AlarmLine binds an INT line to the buses whose chips share it.
// An empty Buses list binds the line to every bus.
type AlarmLine struct {
	Name   string `yaml:"name"`
	Chip   string `yaml:"chip"`
	Offset int    `yaml:"offset"`
	Edge   string `yaml:"edge"`
	Buses  []int  `yaml:"buses"`
}

// Sim drives the emulated devices of the "sim" backend.
type Sim struct {
	// Interval between synthetic conversions; zero disables them.
	Interval time.Duration `yaml:"interval"`
}

// Load reads and validates a YAML file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes and validates YAML.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the topology limits.
func (c *Config) Validate() error {
	switch c.ReadPolicy {
	case "", "await_alarm", "immediate":
	default:
		return errors.Errorf("read_policy %q: want await_alarm or immediate", c.ReadPolicy)
	}
	if len(c.Buses) > MaxBuses {
		return errors.Errorf("%d buses configured, at most %d", len(c.Buses), MaxBuses)
	}
	busIDs := map[int]bool{}
	for _, b := range c.Buses {
		if b.ID < 0 || b.ID >= MaxBuses {
			return errors.Errorf("bus id %d out of range 0..%d", b.ID, MaxBuses-1)
		}
		if busIDs[b.ID] {
			return errors.Errorf("bus %d configured twice", b.ID)
		}
		busIDs[b.ID] = true
		if len(b.Chips) > MaxChipsPerBus {
			return errors.Errorf("bus %d: %d chips, at most %d", b.ID, len(b.Chips), MaxChipsPerBus)
		}
		addrs := map[uint16]bool{}
		for _, ch := range b.Chips {
			if ch.Address != 0x48 && ch.Address != 0x49 {
				return errors.Errorf("bus %d: address 0x%02x, want 0x48 or 0x49", b.ID, ch.Address)
			}
			if addrs[ch.Address] {
				return errors.Errorf("bus %d: address 0x%02x configured twice", b.ID, ch.Address)
			}
			addrs[ch.Address] = true
			seen := map[int]bool{}
			for _, n := range ch.Channels {
				if n < 0 || n >= MaxChannels {
					return errors.Errorf("bus %d chip 0x%02x: channel %d out of range", b.ID, ch.Address, n)
				}
				if seen[n] {
					return errors.Errorf("bus %d chip 0x%02x: channel %d configured twice", b.ID, ch.Address, n)
				}
				seen[n] = true
			}
		}
	}
	for i, l := range c.AlarmLines {
		switch l.Edge {
		case "", "falling", "rising", "both":
		default:
			return errors.Errorf("alarm line %d: edge %q", i, l.Edge)
		}
		for _, id := range l.Buses {
			if !busIDs[id] {
				return errors.Errorf("alarm line %d: bus %d is not configured", i, id)
			}
		}
	}
	return nil
}

// BusDevice returns the platform name for bus b.
func (b Bus) BusDevice() string {
	if b.Device != "" {
		return b.Device
	}
	return fmt.Sprint(b.ID)
}

// LineName returns the display name for an alarm line.
func (l AlarmLine) LineName() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%s:%d", l.Chip, l.Offset)
}
