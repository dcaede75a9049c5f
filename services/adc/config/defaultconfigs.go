package config

import "github.com/pkg/errors"

// Embedded configurations, keyed by name.

const cfgSim = `
backend: sim
read_policy: await_alarm
log_level: info
buses:
  - id: 0
    chips:
      - address: 0x48
        channels: [0, 1, 2, 3]
      - address: 0x49
        channels: [0, 2]
  - id: 1
    chips:
      - address: 0x48
        channels: [1]
alarm_lines:
  - name: int0
    chip: sim
    offset: 0
    edge: falling
sim:
  interval: 250ms
`

const cfgRaspberryPi = `
backend: linux
read_policy: await_alarm
log_level: info
buses:
  - id: 1
    device: /dev/i2c-1
    chips:
      - address: 0x48
        channels: [0, 1, 2, 3]
alarm_lines:
  - name: ads7924-int
    chip: gpiochip0
    offset: 17
    edge: falling
    buses: [1]
`

var embeddedConfigs = map[string]string{
	"sim": cfgSim,
	"rpi": cfgRaspberryPi,
}

// Default returns an embedded configuration by name.
func Default(name string) (Config, error) {
	raw, ok := embeddedConfigs[name]
	if !ok {
		return Config{}, errors.Errorf("no embedded config %q", name)
	}
	return Parse([]byte(raw))
}

// Defaults lists the embedded configuration names.
func Defaults() []string {
	return []string{"rpi", "sim"}
}
