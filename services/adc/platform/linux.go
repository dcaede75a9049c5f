//go:build linux

package platform

import (
	"sync"

	"ads7924-go/services/adc/internal/halcore"
	"ads7924-go/services/adc/internal/halerr"
	"ads7924-go/services/adc/internal/registry"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

const consumer = "ads7924"

func init() {
	registry.RegisterBackend("linux", registry.BackendFunc(openLinux))
}

// openLinux opens every configured bus through periph and serves alarm
// lines from the GPIO character device.
func openLinux(in registry.OpenInput) (halcore.Resources, error) {
	if _, err := host.Init(); err != nil {
		return halcore.Resources{}, errors.Wrap(err, "periph host init")
	}
	f := &linuxI2CFactory{buses: map[string]i2c.BusCloser{}}
	for _, b := range in.Config.Buses {
		name := b.BusDevice()
		bus, err := i2creg.Open(name)
		if err != nil {
			return halcore.Resources{}, multierr.Append(errors.Wrapf(err, "open i2c bus %s", name), f.Close())
		}
		f.buses[name] = bus
	}
	return halcore.Resources{
		Buses: f,
		Lines: &cdevLineFactory{log: loggerOrNop(in.Logger)},
		Close: f.Close,
	}, nil
}

type linuxI2CFactory struct {
	buses map[string]i2c.BusCloser
}

func (f *linuxI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	if !ok {
		return nil, false
	}
	return b, true
}

func (f *linuxI2CFactory) Close() error {
	var err error
	for name, b := range f.buses {
		err = multierr.Append(err, errors.Wrapf(b.Close(), "close i2c bus %s", name))
		delete(f.buses, name)
	}
	return err
}

type cdevLineFactory struct {
	log *zap.SugaredLogger
}

func (f *cdevLineFactory) Line(chip string, offset int) (halcore.IRQLine, error) {
	if chip == "" {
		return nil, errors.Wrap(halerr.ErrUnknownLine, "empty gpio chip name")
	}
	return &cdevLine{chip: chip, offset: offset, log: f.log}, nil
}

// cdevLine requests the line on SetIRQ and releases it on ClearIRQ.
type cdevLine struct {
	chip   string
	offset int
	log    *zap.SugaredLogger

	mu  sync.Mutex
	req *gpiocdev.Line
}

func (l *cdevLine) SetIRQ(edge halcore.Edge, handler func()) error {
	var opt gpiocdev.LineReqOption
	switch edge {
	case halcore.EdgeRising:
		opt = gpiocdev.WithRisingEdge
	case halcore.EdgeFalling:
		opt = gpiocdev.WithFallingEdge
	case halcore.EdgeBoth:
		opt = gpiocdev.WithBothEdges
	default:
		return errors.Wrapf(halerr.ErrInvalidEdge, "%s:%d", l.chip, l.offset)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.req != nil {
		return errors.Errorf("line %s:%d already requested", l.chip, l.offset)
	}
	req, err := gpiocdev.RequestLine(l.chip, l.offset,
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(consumer),
		opt,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler()
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "request line %s:%d", l.chip, l.offset)
	}
	l.req = req
	l.log.Debugw("alarm line requested", "chip", l.chip, "offset", l.offset, "edge", halcore.EdgeToString(edge))
	return nil
}

func (l *cdevLine) ClearIRQ() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.req == nil {
		return nil
	}
	err := l.req.Close()
	l.req = nil
	return errors.Wrapf(err, "release line %s:%d", l.chip, l.offset)
}

func loggerOrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
