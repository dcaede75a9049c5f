package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaultsParse(t *testing.T) {
	for _, name := range Defaults() {
		_, err := Default(name)
		require.NoError(t, err, name)
	}
	cfg, err := Default("sim")
	require.NoError(t, err)
	require.Len(t, cfg.Buses, 2)
	assert.Equal(t, uint16(0x49), cfg.Buses[0].Chips[1].Address)
	assert.Equal(t, []int{0, 2}, cfg.Buses[0].Chips[1].Channels)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.Interval)
	assert.Equal(t, "0", cfg.Buses[0].BusDevice())

	_, err = Default("nope")
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"policy":        "read_policy: sometimes\n",
		"bus id":        "buses: [{id: 4}]\n",
		"dup bus":       "buses: [{id: 0}, {id: 0}]\n",
		"address":       "buses: [{id: 0, chips: [{address: 0x50}]}]\n",
		"dup address":   "buses: [{id: 0, chips: [{address: 0x48}, {address: 0x48}]}]\n",
		"too many":      "buses: [{id: 0, chips: [{address: 0x48}, {address: 0x49}, {address: 0x48}]}]\n",
		"channel":       "buses: [{id: 0, chips: [{address: 0x48, channels: [4]}]}]\n",
		"dup channel":   "buses: [{id: 0, chips: [{address: 0x48, channels: [1, 1]}]}]\n",
		"edge":          "alarm_lines: [{chip: x, edge: sideways}]\n",
		"unbound bus":   "alarm_lines: [{chip: x, buses: [2]}]\n",
		"unknown field": "bogus: 1\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "adc.yaml")
	require.NoError(t, os.WriteFile(p, []byte("buses: [{id: 2, device: I2C2, chips: [{address: 0x49, channels: [3]}]}]\n"), 0o600))
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "I2C2", cfg.Buses[0].BusDevice())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLineName(t *testing.T) {
	assert.Equal(t, "gpiochip0:17", AlarmLine{Chip: "gpiochip0", Offset: 17}.LineName())
	assert.Equal(t, "int", AlarmLine{Name: "int"}.LineName())
}
