package platform

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/drivers/ads7924/sim"
	"ads7924-go/services/adc/config"
	"ads7924-go/services/adc/internal/halcore"
	"ads7924-go/services/adc/internal/halerr"
	"ads7924-go/services/adc/internal/registry"

	"github.com/pkg/errors"
	"tinygo.org/x/drivers"
)

func init() {
	registry.RegisterBackend("sim", registry.BackendFunc(func(in registry.OpenInput) (halcore.Resources, error) {
		s := NewSim(in.Config)
		if in.Config.Sim.Interval > 0 {
			s.Animate(in.Config.Sim.Interval)
		}
		return s.Resources(), nil
	}))
}

// ----------------------------- I²C (host) ------------------------------------

// Sim is the host backend: one emulated bus per configured bus with a
// device at every configured address, plus fake alarm lines.
type Sim struct {
	cfg   config.Config
	buses map[string]*sim.Bus
	lines *HostLineFactory

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewSim builds emulated hardware for cfg.
func NewSim(cfg config.Config) *Sim {
	s := &Sim{cfg: cfg, buses: map[string]*sim.Bus{}, lines: &HostLineFactory{}}
	for _, b := range cfg.Buses {
		bus := sim.NewBus()
		for _, c := range b.Chips {
			bus.Attach(c.Address)
		}
		s.buses[b.BusDevice()] = bus
	}
	return s
}

// ByID implements halcore.I2CBusFactory.
func (s *Sim) ByID(id string) (drivers.I2C, bool) {
	b, ok := s.buses[id]
	if !ok {
		return nil, false
	}
	return b, true
}

// Bus returns the emulated bus for a platform bus name.
func (s *Sim) Bus(id string) *sim.Bus { return s.buses[id] }

// Device returns the emulated device at addr on bus id.
func (s *Sim) Device(id string, addr uint16) (*sim.Device, bool) {
	b, ok := s.buses[id]
	if !ok {
		return nil, false
	}
	return b.Device(addr)
}

// Lines returns the fake alarm line factory.
func (s *Sim) Lines() *HostLineFactory { return s.lines }

// Resources returns the backend view handed to the driver.
func (s *Sim) Resources() halcore.Resources {
	return halcore.Resources{Buses: s, Lines: s.lines, Close: s.Close}
}

// Animate starts synthetic conversions: every interval each channel takes
// a random step and alarms when its enable bit is set, pulsing every line.
func (s *Sim) Animate(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		vals := map[*sim.Device]*[ads7924.NumChannels]int{}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			fire := false
			for _, b := range s.cfg.Buses {
				for _, c := range b.Chips {
					d, ok := s.Device(b.BusDevice(), c.Address)
					if !ok {
						continue
					}
					v := vals[d]
					if v == nil {
						v = &[ads7924.NumChannels]int{0x800, 0x800, 0x800, 0x800}
						vals[d] = v
					}
					for ch := range v {
						v[ch] = clamp12(v[ch] + rng.Intn(129) - 64)
						d.SetValue(ch, uint16(v[ch]))
						if d.Alarm(ch) {
							fire = true
						}
					}
				}
			}
			if fire {
				s.lines.PulseAll()
			}
		}
	}()
}

// Close stops Animate.
func (s *Sim) Close() error {
	if s.stop != nil {
		s.stop()
		s.wg.Wait()
	}
	return nil
}

func clamp12(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xFFF {
		return 0xFFF
	}
	return v
}

// ----------------------------- Alarm lines (host) ----------------------------

// FakeLine implements halcore.IRQLine for host-side tests. The line idles high.
type FakeLine struct {
	mu      sync.RWMutex
	level   bool
	irqEdge halcore.Edge
	irqFunc func()
}

func newFakeLine() *FakeLine { return &FakeLine{level: true} }

// Set drives the line and runs the handler if the edge matches.
func (p *FakeLine) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	edge := edgeFrom(old, level)
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edge)
	p.mu.Unlock()
	if want && irq != nil {
		irq() // ISR-style callback used by irqworker.Worker
	}
}

// Pulse asserts the active-low INT line and releases it.
func (p *FakeLine) Pulse() {
	p.Set(false)
	p.Set(true)
}

func (p *FakeLine) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakeLine) SetIRQ(edge halcore.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakeLine) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = halcore.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// Armed reports whether a handler is installed.
func (p *FakeLine) Armed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

func edgeFrom(old, new bool) halcore.Edge {
	switch {
	case !old && new:
		return halcore.EdgeRising
	case old && !new:
		return halcore.EdgeFalling
	default:
		return halcore.EdgeNone
	}
}

func irqWanted(cfg, seen halcore.Edge) bool {
	switch cfg {
	case halcore.EdgeBoth:
		return seen == halcore.EdgeRising || seen == halcore.EdgeFalling
	default:
		return cfg != halcore.EdgeNone && cfg == seen
	}
}

type lineKey struct {
	chip   string
	offset int
}

// HostLineFactory returns stable *FakeLine instances per (chip, offset).
type HostLineFactory struct {
	mu    sync.Mutex
	lines map[lineKey]*FakeLine
	// Missing makes Line fail for these chip names.
	Missing map[string]bool
}

func (f *HostLineFactory) Line(chip string, offset int) (halcore.IRQLine, error) {
	if f.Missing[chip] {
		return nil, errors.Wrapf(halerr.ErrUnknownLine, "%s:%d", chip, offset)
	}
	return f.Get(chip, offset), nil
}

// Get exposes the underlying *FakeLine for tests (e.g. to drive IRQ edges).
func (f *HostLineFactory) Get(chip string, offset int) *FakeLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lines == nil {
		f.lines = make(map[lineKey]*FakeLine)
	}
	k := lineKey{chip, offset}
	l, ok := f.lines[k]
	if !ok {
		l = newFakeLine()
		f.lines[k] = l
	}
	return l
}

// PulseAll pulses every line handed out so far.
func (f *HostLineFactory) PulseAll() {
	f.mu.Lock()
	ls := make([]*FakeLine, 0, len(f.lines))
	for _, l := range f.lines {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l.Pulse()
	}
}
