package platform

import (
	"testing"
	"time"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/services/adc/config"
	"ads7924-go/services/adc/internal/halcore"
	"ads7924-go/services/adc/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimBackendRegistered(t *testing.T) {
	_, ok := registry.Lookup("sim")
	assert.True(t, ok)
}

func TestSimBuildsConfiguredBuses(t *testing.T) {
	cfg, err := config.Default("sim")
	require.NoError(t, err)
	s := NewSim(cfg)

	_, ok := s.ByID("0")
	assert.True(t, ok)
	_, ok = s.ByID("7")
	assert.False(t, ok)

	_, ok = s.Device("0", ads7924.AddressA0High)
	assert.True(t, ok)
	_, ok = s.Device("1", ads7924.AddressA0High)
	assert.False(t, ok)

	bus, _ := s.ByID("1")
	r := []byte{0}
	require.NoError(t, bus.Tx(ads7924.AddressA0Low, []byte{ads7924.RegReset}, r))
	assert.Equal(t, byte(0x18), r[0])
}

func TestFakeLineEdges(t *testing.T) {
	f := &HostLineFactory{}
	l := f.Get("sim", 0)
	assert.Same(t, l, f.Get("sim", 0))
	assert.True(t, l.Get())

	n := 0
	require.NoError(t, l.SetIRQ(halcore.EdgeFalling, func() { n++ }))
	assert.True(t, l.Armed())
	l.Pulse()
	l.Pulse()
	assert.Equal(t, 2, n)

	require.NoError(t, l.SetIRQ(halcore.EdgeBoth, func() { n++ }))
	l.Pulse()
	assert.Equal(t, 4, n)

	require.NoError(t, l.ClearIRQ())
	l.Pulse()
	assert.Equal(t, 4, n)
	assert.False(t, l.Armed())

	f.Missing = map[string]bool{"gone": true}
	_, err := f.Line("gone", 1)
	assert.Error(t, err)
}

func TestAnimatePulsesEnabledChannels(t *testing.T) {
	cfg := config.Config{Buses: []config.Bus{{ID: 0, Chips: []config.Chip{{Address: ads7924.AddressA0Low}}}}}
	s := NewSim(cfg)
	dev, _ := s.Device("0", ads7924.AddressA0Low)
	dev.SetRegister(ads7924.RegIntCntrl, 0x01)

	fired := make(chan struct{}, 16)
	l := s.Lines().Get("sim", 0)
	require.NoError(t, l.SetIRQ(halcore.EdgeFalling, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	s.Animate(time.Millisecond)
	defer s.Close()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no alarm pulse")
	}
}
