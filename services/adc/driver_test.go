package adc_test

import (
	"context"
	"io"
	"testing"
	"time"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/errcode"
	"ads7924-go/services/adc"
	"ads7924-go/services/adc/config"
	"ads7924-go/services/adc/internal/halcore"
	"ads7924-go/services/adc/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Default("sim")
	require.NoError(t, err)
	cfg.Sim.Interval = 0
	return cfg
}

func oneChip(channels ...int) config.Config {
	return config.Config{
		Buses:      []config.Bus{{ID: 0, Chips: []config.Chip{{Address: ads7924.AddressA0Low, Channels: channels}}}},
		AlarmLines: []config.AlarmLine{{Name: "int0", Chip: "sim", Offset: 0}},
	}
}

func newDriver(t *testing.T, cfg config.Config, opts adc.Options) (*adc.Driver, *platform.Sim) {
	t.Helper()
	s := platform.NewSim(cfg)
	d, err := adc.Build(cfg, s.Resources(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, s
}

func TestMinorsAndNames(t *testing.T) {
	d, _ := newDriver(t, simConfig(t), adc.Options{})

	want := map[int]string{
		0: "ads79240A", 1: "ads79240A0", 2: "ads79240A1", 3: "ads79240A2", 4: "ads79240A3",
		5: "ads79240B", 6: "ads79240B0", 7: "ads79240B2",
		8: "ads79241A", 9: "ads79241A1",
	}
	for minor, name := range want {
		tg, err := d.Resolve(minor)
		require.NoError(t, err, "minor %d", minor)
		assert.Equal(t, name, tg.Name())

		byName, err := d.ResolveName(name)
		require.NoError(t, err)
		assert.Equal(t, minor, byName.Minor())
	}

	_, err := d.Resolve(10)
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
	_, err = d.ResolveName("ads79241B")
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	chips := d.Chips()
	require.Len(t, chips, 3)
	assert.Len(t, chips[1].Channels(), 2)
	assert.Equal(t, 1, chips[2].Bus())
}

func TestChannelTargetParent(t *testing.T) {
	d, _ := newDriver(t, simConfig(t), adc.Options{})
	tg, err := d.ResolveName("ads79240B2")
	require.NoError(t, err)
	ch := tg.(*adc.ChannelTarget)
	assert.Equal(t, "ads79240B", ch.Parent().Name())
	assert.Equal(t, 2, ch.Channel().Index())
	assert.Same(t, ch.Parent().Chip(), ch.Channel().Chip())
}

func TestDiscoveryRejectsMismatchedID(t *testing.T) {
	cfg := oneChip(0)
	s := platform.NewSim(cfg)
	dev, _ := s.Device("0", ads7924.AddressA0Low)
	dev.SetRegister(ads7924.RegReset, 0x19)

	_, err := adc.Build(cfg, s.Resources(), adc.Options{})
	require.Error(t, err)
	assert.Equal(t, errcode.NotPresent, errcode.Of(err))
	assert.ErrorIs(t, err, ads7924.ErrNotPresent)
}

func TestDiscoveryTransportFailureIsIOError(t *testing.T) {
	cfg := oneChip(0)
	s := platform.NewSim(cfg)
	dev, _ := s.Device("0", ads7924.AddressA0Low)
	dev.FailNext(ads7924.RegReset, 1)

	_, err := adc.Build(cfg, s.Resources(), adc.Options{})
	assert.Equal(t, errcode.IOError, errcode.Of(err))
}

func TestBuildIsAllOrNothing(t *testing.T) {
	cfg := simConfig(t)
	s := platform.NewSim(cfg)
	bad, _ := s.Device("1", ads7924.AddressA0Low)
	bad.SetRegister(ads7924.RegReset, 0x00)

	res := s.Resources()
	closes := 0
	res.Close = func() error { closes++; return nil }

	d, err := adc.Build(cfg, res, adc.Options{})
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Equal(t, 1, closes)

	good, _ := s.Device("0", ads7924.AddressA0High)
	assert.Equal(t, 1, good.Resets(), "chips before the failure were brought up")
}

func TestBuildUnknownBusDevice(t *testing.T) {
	cfg := oneChip(0)
	s := platform.NewSim(config.Config{})
	_, err := adc.Build(cfg, s.Resources(), adc.Options{})
	require.Error(t, err)
}

func TestBuildMissingAlarmLine(t *testing.T) {
	cfg := oneChip(0)
	s := platform.NewSim(cfg)
	s.Lines().Missing = map[string]bool{"sim": true}
	_, err := adc.Build(cfg, s.Resources(), adc.Options{})
	require.Error(t, err)
}

func TestTopologyFixedAfterStart(t *testing.T) {
	d, _ := newDriver(t, oneChip(0), adc.Options{})
	require.NoError(t, d.Start(context.Background()))
	chips := d.Chips()
	_, err := d.ConfigureChannel(chips[0], 1)
	assert.Error(t, err)
	assert.Error(t, d.Start(context.Background()))
}

func TestConfigureChannelTwice(t *testing.T) {
	d, _ := newDriver(t, oneChip(0), adc.Options{})
	_, err := d.ConfigureChannel(d.Chips()[0], 0)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestBindAlarmLineUnknownBus(t *testing.T) {
	d, s := newDriver(t, oneChip(0), adc.Options{})
	err := d.BindAlarmLine("x", s.Lines().Get("sim", 1), halcore.EdgeFalling, 3)
	assert.Error(t, err)
}

func TestReadPolicyFromConfig(t *testing.T) {
	cfg := oneChip(0)
	cfg.ReadPolicy = "immediate"
	d, _ := newDriver(t, cfg, adc.Options{})
	h, err := d.OpenName("ads79240A0", adc.OpenNonBlock)
	require.NoError(t, err)

	// Policy: immediate. Back-to-back consumes never block.
	p := make([]byte, 2)
	for i := 0; i < 3; i++ {
		n, err := h.Read(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		_, err = h.Read(context.Background(), p)
		require.Error(t, err)
	}
}

func TestAlarmLineWakesBlockedReader(t *testing.T) {
	d, s := newDriver(t, oneChip(0), adc.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Start(ctx))

	line := s.Lines().Get("sim", 0)
	require.True(t, line.Armed())
	dev, _ := s.Device("0", ads7924.AddressA0Low)
	dev.SetValue(0, 0x800) // discovery reset cleared the result registers

	// The first interrupt after reset is discarded.
	line.Pulse()
	require.Eventually(t, func() bool { return d.Stats()[0].Runs == 1 }, time.Second, time.Millisecond)

	h, err := d.OpenName("ads79240A0", 0)
	require.NoError(t, err)
	require.NoError(t, h.Ioctl(adc.CmdReadModeDec, nil))
	require.NoError(t, h.Ioctl(adc.CmdAlarmEnable, nil))

	// Policy: await alarm. The first consume does not wait.
	buf := make([]byte, 8)
	n, err := h.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "2048\x00", string(buf[:n]))
	_, err = h.Read(ctx, buf)
	require.ErrorIs(t, err, io.EOF)

	type result struct {
		s   string
		err error
	}
	done := make(chan result, 1)
	go func() {
		p := make([]byte, 8)
		n, err := h.Read(ctx, p)
		done <- result{string(p[:n]), err}
	}()

	dev.SetValue(0, 0x123)
	dev.Alarm(0)
	line.Pulse()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "291\x00", r.s)
	case <-ctx.Done():
		t.Fatal("reader was not woken")
	}
	ready, _ := h.Poll()
	assert.True(t, ready)
	ready, _ = h.Poll()
	assert.False(t, ready)

	require.NoError(t, h.Close())
	require.NoError(t, d.Close())
	assert.False(t, line.Armed())
}

func TestSharedLineServesEveryBus(t *testing.T) {
	d, s := newDriver(t, simConfig(t), adc.Options{})
	require.NoError(t, d.Start(context.Background()))
	line := s.Lines().Get("sim", 0)
	line.Pulse()
	require.Eventually(t, func() bool { return d.Stats()[0].Runs == 1 }, time.Second, time.Millisecond)

	type probe struct {
		name string
		bus  string
		ch   int
		v    uint16
	}
	probes := []probe{
		{"ads79240A0", "0", 0, 0x111},
		{"ads79241A1", "1", 1, 0x222},
	}
	var handles []*adc.Handle
	for _, p := range probes {
		h, err := d.OpenName(p.name, 0)
		require.NoError(t, err)
		require.NoError(t, h.Ioctl(adc.CmdAlarmEnable, nil))
		handles = append(handles, h)
		dev, _ := s.Device(p.bus, ads7924.AddressA0Low)
		dev.SetValue(p.ch, p.v)
		dev.Alarm(p.ch)
	}
	line.Pulse()
	require.Eventually(t, func() bool { return d.Stats()[0].Runs == 2 }, time.Second, time.Millisecond)

	for i, p := range probes {
		v, ok := handles[i].Target().(*adc.ChannelTarget).Channel().Cached()
		assert.True(t, ok, p.name)
		assert.Equal(t, p.v, v, p.name)
	}
	assert.Zero(t, d.Stats()[0].ISRDrops)
}

func TestKickUnknownLine(t *testing.T) {
	d, _ := newDriver(t, oneChip(0), adc.Options{})
	assert.NoError(t, d.Kick("int0"))
	assert.Error(t, d.Kick("int9"))
}

func TestOpenBackend(t *testing.T) {
	cfg := simConfig(t)
	d, err := adc.Open(context.Background(), cfg, "", adc.Options{})
	require.NoError(t, err)
	assert.Len(t, d.Chips(), 3)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = adc.Open(context.Background(), cfg, "nope", adc.Options{})
	assert.Error(t, err)
}

func TestClosedDriverRejectsHandles(t *testing.T) {
	d, _ := newDriver(t, oneChip(0), adc.Options{})
	h, err := d.Open(1, 0)
	require.NoError(t, err)
	require.NoError(t, d.Teardown())

	_, err = d.Open(1, 0)
	assert.Equal(t, errcode.Closed, errcode.Of(err))
	_, err = h.Read(context.Background(), make([]byte, 2))
	assert.Equal(t, errcode.Closed, errcode.Of(err))
	assert.Equal(t, errcode.Closed, errcode.Of(h.Ioctl(adc.CmdAlarmEnable, nil)))
}

func TestCloseDuringLookups(t *testing.T) {
	d, _ := newDriver(t, simConfig(t), adc.Options{})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, _ = d.Resolve(9)
			_, _ = d.ResolveName("ads79240B2")
			_ = d.Chips()
			_ = d.Snapshot()
		}
	}()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, d.Close())
	close(stop)
	<-done

	_, err := d.Resolve(9)
	assert.Equal(t, errcode.Closed, errcode.Of(err))
	_, err = d.OpenName("ads79241A1", 0)
	assert.Equal(t, errcode.Closed, errcode.Of(err))
}

func TestCloseWakesBlockedReader(t *testing.T) {
	d, _ := newDriver(t, oneChip(0), adc.Options{})
	require.NoError(t, d.Start(context.Background()))
	h, err := d.Open(1, 0)
	require.NoError(t, err)
	defer h.Close()

	buf := make([]byte, 8)
	_, err = h.Read(context.Background(), buf)
	require.NoError(t, err)
	_, err = h.Read(context.Background(), buf)
	require.ErrorIs(t, err, io.EOF)

	done := make(chan error, 1)
	go func() {
		_, err := h.Read(context.Background(), make([]byte, 8))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, d.Close())

	select {
	case err := <-done:
		assert.Equal(t, errcode.Closed, errcode.Of(err))
	case <-time.After(2 * time.Second):
		t.Fatal("reader still blocked after Close")
	}
}

func TestClosedHandleNeverReady(t *testing.T) {
	d, s := newDriver(t, oneChip(0), adc.Options{})
	require.NoError(t, d.Start(context.Background()))
	line := s.Lines().Get("sim", 0)
	line.Pulse()
	require.Eventually(t, func() bool { return d.Stats()[0].Runs == 1 }, time.Second, time.Millisecond)

	gone, err := d.Open(1, 0)
	require.NoError(t, err)
	live, err := d.Open(1, 0)
	require.NoError(t, err)
	defer live.Close()
	require.NoError(t, live.Ioctl(adc.CmdAlarmEnable, nil))
	require.NoError(t, gone.Close())

	dev, _ := s.Device("0", ads7924.AddressA0Low)
	dev.Alarm(0)
	line.Pulse()
	require.Eventually(t, func() bool { return d.Stats()[0].Runs == 2 }, time.Second, time.Millisecond)

	ready, wake := gone.Poll()
	assert.False(t, ready)
	assert.NotNil(t, wake)
	ready, _ = live.Poll()
	assert.True(t, ready)

	require.NoError(t, d.Close())
	ready, _ = live.Poll()
	assert.False(t, ready)
}
