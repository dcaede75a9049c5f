// Package adc is the client-facing side of the ADS7924 driver: it owns the
// bus/chip/channel topology, hands out handles keyed by minor number or
// device name, routes ioctl-style commands and runs one alarm bottom-half
// per interrupt line.
package adc

import (
	"context"
	"fmt"
	"sync"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/errcode"
	"ads7924-go/services/adc/config"
	"ads7924-go/services/adc/internal/halcore"
	"ads7924-go/services/adc/internal/halerr"
	"ads7924-go/services/adc/internal/irqworker"
	"ads7924-go/services/adc/internal/registry"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version is reported in the status report.
const Version = "1.2.0"

// Options controls non-topology behaviour.
type Options struct {
	Logger *zap.SugaredLogger
	Policy ads7924.ReadPolicy
	// ISRQueue bounds pending edges per alarm line. Default 4.
	ISRQueue int
}

// Driver owns the topology arena. Topology changes (AddBus, DiscoverChip,
// ConfigureChannel, BindAlarmLine) must happen before Start; afterwards the
// arena is read-only, including after Close.
type Driver struct {
	log  *zap.SugaredLogger
	opts Options
	res  halcore.Resources

	buses     [config.MaxBuses]*busNode
	nextMinor int
	workers   []*irqworker.Worker

	mu      sync.Mutex // lifecycle
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	closed  atomic.Bool
}

// New returns a driver with an empty topology over res.
func New(res halcore.Resources, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Driver{log: opts.Logger, opts: opts, res: res}
}

// Build constructs the whole topology described by cfg. Construction is
// all-or-nothing: on any failure everything built so far is released,
// including res.
func Build(cfg config.Config, res halcore.Resources, opts Options) (*Driver, error) {
	if cfg.ReadPolicy == ads7924.ReadImmediate.String() {
		opts.Policy = ads7924.ReadImmediate
	}
	d := New(res, opts)
	err := cfg.Validate()
	if err == nil {
		err = d.build(cfg)
	}
	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	return d, nil
}

func (d *Driver) build(cfg config.Config) error {
	for _, b := range cfg.Buses {
		if err := d.AddBus(b.ID, b.BusDevice()); err != nil {
			return err
		}
		for _, c := range b.Chips {
			ct, err := d.DiscoverChip(b.ID, c.Address)
			if err != nil {
				return err
			}
			for _, n := range c.Channels {
				if _, err := d.ConfigureChannel(ct, n); err != nil {
					return err
				}
			}
		}
	}
	for _, l := range cfg.AlarmLines {
		edge := halcore.EdgeFalling
		if l.Edge != "" {
			e, ok := halcore.ParseEdge(l.Edge)
			if !ok {
				return errors.Wrap(halerr.ErrInvalidEdge, l.Edge)
			}
			edge = e
		}
		if d.res.Lines == nil {
			return errors.Wrapf(halerr.ErrUnknownLine, "alarm line %s: no line factory", l.LineName())
		}
		line, err := d.res.Lines.Line(l.Chip, l.Offset)
		if err != nil {
			return errors.Wrapf(err, "alarm line %s", l.LineName())
		}
		if err := d.BindAlarmLine(l.LineName(), line, edge, l.Buses...); err != nil {
			return err
		}
	}
	return nil
}

// Open builds a driver on a registered platform backend and starts it.
// backend overrides cfg.Backend when non-empty.
func Open(ctx context.Context, cfg config.Config, backend string, opts Options) (*Driver, error) {
	if backend == "" {
		backend = cfg.Backend
	}
	b, ok := registry.Lookup(backend)
	if !ok {
		return nil, errors.Wrapf(halerr.ErrUnknownBackend, "%q (have %v)", backend, registry.Names())
	}
	res, err := b.Open(registry.OpenInput{Config: cfg, Logger: opts.Logger})
	if err != nil {
		return nil, errors.Wrapf(err, "open backend %s", backend)
	}
	d, err := Build(cfg, res, opts)
	if err != nil {
		return nil, err
	}
	if err := d.Start(ctx); err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	return d, nil
}

// AddBus registers bus id, resolving its transport by platform name.
func (d *Driver) AddBus(id int, device string) error {
	if err := d.mutable(); err != nil {
		return err
	}
	if id < 0 || id >= config.MaxBuses {
		return errors.Wrapf(halerr.ErrUnknownBus, "bus id %d", id)
	}
	if d.buses[id] != nil {
		return errors.Errorf("bus %d already added", id)
	}
	if d.res.Buses == nil {
		return errors.Wrapf(halerr.ErrUnknownBus, "bus %d: no bus factory", id)
	}
	i2c, ok := d.res.Buses.ByID(device)
	if !ok {
		return errors.Wrapf(halerr.ErrUnknownBus, "bus %d (%s)", id, device)
	}
	d.buses[id] = &busNode{id: id, device: device, i2c: i2c}
	return nil
}

// DiscoverChip verifies and resets the chip at addr on bus busID and gives
// it the next minor. A device whose ID does not match its address is
// reported as not present.
func (d *Driver) DiscoverChip(busID int, addr uint16) (*ChipTarget, error) {
	if err := d.mutable(); err != nil {
		return nil, err
	}
	if busID < 0 || busID >= config.MaxBuses || d.buses[busID] == nil {
		return nil, errors.Wrapf(halerr.ErrUnknownBus, "bus %d", busID)
	}
	b := d.buses[busID]
	slot, ok := slotOf(addr)
	if !ok {
		return nil, &errcode.E{C: errcode.NotPresent, Op: "discover", Msg: fmt.Sprintf("address 0x%02x", addr), Err: ads7924.ErrNotPresent}
	}
	if b.chips[slot] != nil {
		return nil, errors.Errorf("bus %d: chip 0x%02x already discovered", busID, addr)
	}

	name := ChipName(busID, slot)
	chip := ads7924.New(b.i2c, ads7924.Config{
		Address: addr,
		Policy:  d.opts.Policy,
		Logger:  d.log.With("device", name),
	})
	if err := chip.Verify(); err != nil {
		return nil, mapErr("discover "+name, err)
	}
	if err := chip.Reset(); err != nil {
		return nil, mapErr("reset "+name, err)
	}

	t := &ChipTarget{minor: d.nextMinor, name: name, bus: busID, slot: slot, chip: chip}
	d.nextMinor++
	b.chips[slot] = t
	d.log.Infow("chip discovered", "device", name, "minor", t.minor, "address", fmt.Sprintf("0x%02x", addr))
	return t, nil
}

// ConfigureChannel declares input index of chip present and gives it the next minor.
func (d *Driver) ConfigureChannel(chip *ChipTarget, index int) (*ChannelTarget, error) {
	if err := d.mutable(); err != nil {
		return nil, err
	}
	ch, err := chip.chip.AddChannel(index)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "configure " + chip.name, Err: err}
	}
	t := &ChannelTarget{
		minor:   d.nextMinor,
		name:    ChannelName(chip.bus, chip.slot, index),
		parent:  chip,
		channel: ch,
	}
	d.nextMinor++
	chip.channels[index] = t
	d.log.Debugw("channel configured", "device", t.name, "minor", t.minor)
	return t, nil
}

// BindAlarmLine attaches an interrupt line shared by every chip on the
// given buses. With no buses the line serves all buses.
func (d *Driver) BindAlarmLine(name string, line halcore.IRQLine, edge halcore.Edge, buses ...int) error {
	if err := d.mutable(); err != nil {
		return err
	}
	for _, id := range buses {
		if id < 0 || id >= config.MaxBuses || d.buses[id] == nil {
			return errors.Wrapf(halerr.ErrBusUnbound, "line %s: bus %d", name, id)
		}
	}
	ids := append([]int(nil), buses...)
	w := irqworker.New(name, line, edge, func() { d.dispatch(name, ids) }, d.opts.ISRQueue)
	d.workers = append(d.workers, w)
	return nil
}

// dispatch runs the per-chip alarm procedure for every chip on the line's
// buses. The edge does not tell which chip alarmed.
func (d *Driver) dispatch(line string, buses []int) {
	visit := func(b *busNode) {
		for _, c := range b.chips {
			if c == nil {
				continue
			}
			res := c.chip.HandleAlarm()
			switch {
			case res.Err != nil:
				d.log.Debugw("alarm cycle dropped", "line", line, "device", c.name, "error", res.Err)
			case res.Failed != 0:
				d.log.Warnw("alarm refresh failed", "line", line, "device", c.name, "channels", fmt.Sprintf("%04b", res.Failed))
			}
		}
	}
	if len(buses) == 0 {
		for _, b := range d.buses {
			if b != nil {
				visit(b)
			}
		}
		return
	}
	for _, id := range buses {
		visit(d.buses[id])
	}
}

// Start arms every alarm line and starts their bottom-half workers.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return errcode.Closed
	}
	if d.started {
		return errors.New("adc: already started")
	}
	for i, w := range d.workers {
		if err := w.Arm(); err != nil {
			err = errors.Wrapf(err, "arm alarm line %s", w.Name())
			for _, armed := range d.workers[:i] {
				err = multierr.Append(err, armed.Disarm())
			}
			return err
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range d.workers {
		g.Go(func() error { return w.Run(gctx) })
	}
	d.cancel, d.group, d.started = cancel, g, true
	d.log.Infow("adc started", "chips", len(d.Chips()), "alarm_lines", len(d.workers), "policy", d.opts.Policy.String())
	return nil
}

// Close stops the workers, releases the alarm lines, wakes blocked readers
// and closes the backend. Open handles fail with errcode.Closed afterwards.
// The arena itself is left in place so concurrent lookups stay safe; they
// observe closed instead.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Swap(true) {
		return nil
	}
	var err error
	if d.started {
		d.cancel()
		err = multierr.Append(err, d.group.Wait())
	}
	d.workers = nil
	d.each(func(c *ChipTarget) bool {
		for _, ch := range c.Channels() {
			ch.channel.Shutdown()
		}
		return true
	})
	if d.res.Close != nil {
		err = multierr.Append(err, d.res.Close())
	}
	d.log.Infow("adc closed")
	return err
}

// Teardown is Close for lifecycle glue that names it so.
func (d *Driver) Teardown() error { return d.Close() }

func (d *Driver) mutable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return errcode.Closed
	}
	if d.started {
		return errors.New("adc: topology is fixed once started")
	}
	return nil
}

// LineStats describes one alarm line worker.
type LineStats struct {
	Name     string
	Runs     uint32
	ISRDrops uint32
}

// Stats reports per-line bottom-half counters.
func (d *Driver) Stats() []LineStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]LineStats, 0, len(d.workers))
	for _, w := range d.workers {
		out = append(out, LineStats{Name: w.Name(), Runs: w.Runs(), ISRDrops: w.ISRDrops()})
	}
	return out
}

// Kick runs the bottom-half of the named line as if its edge fired.
func (d *Driver) Kick(line string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.workers {
		if w.Name() == line {
			w.Kick()
			return nil
		}
	}
	return errors.Wrap(halerr.ErrUnknownLine, line)
}
