// Package sim emulates ADS7924 register files behind a host-side
// tinygo drivers.I2C bus, for tests and the CLI's "sim" backend.
package sim

import (
	"errors"
	"sync"
	"time"

	"ads7924-go/drivers/ads7924"

	"go.uber.org/atomic"
)

// AnyRegister makes FailNext match every transfer.
const AnyRegister byte = 0xFF

var (
	ErrNoDevice = errors.New("sim: no device at address")
	ErrNAK      = errors.New("sim: injected NAK")
	ErrProtocol = errors.New("sim: malformed transfer")
)

// Bus implements drivers.I2C over a set of emulated devices. It does not
// serialize transfers, so overlapping transfers to one device are observable.
type Bus struct {
	mu      sync.RWMutex
	devices map[uint16]*Device
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{devices: map[uint16]*Device{}} }

// Attach adds a freshly powered-up device at addr and returns it.
func (b *Bus) Attach(addr uint16) *Device {
	d := NewDevice(addr)
	b.mu.Lock()
	b.devices[addr] = d
	b.mu.Unlock()
	return d
}

// Device returns the device at addr, if any.
func (b *Bus) Device(addr uint16) (*Device, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.devices[addr]
	return d, ok
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	d, ok := b.Device(addr)
	if !ok {
		return ErrNoDevice
	}
	return d.Tx(addr, w, r)
}

// Transfer is one recorded transaction.
type Transfer struct {
	Reg   byte // register address with the auto-increment flag stripped
	Inc   bool
	Write []byte
	Read  int
}

// Device is one emulated ADS7924.
type Device struct {
	addr uint16

	// Delay is slept inside every transfer, outside the register lock,
	// to widen windows for overlap detection.
	Delay time.Duration

	inFlight atomic.Int32
	overlaps atomic.Int32

	mu      sync.Mutex
	regs    [ads7924.RegisterSpan]byte
	fail    map[byte]int
	log     []Transfer
	resets  int
	alarmed byte // pending alarm status, upper nibble of INTCNTRL
}

// NewDevice returns a device in its power-up state.
func NewDevice(addr uint16) *Device {
	d := &Device{addr: addr, fail: map[byte]int{}}
	d.powerUp()
	return d
}

func (d *Device) powerUp() {
	d.regs = [ads7924.RegisterSpan]byte{}
	d.alarmed = 0
	switch d.addr {
	case ads7924.AddressA0Low:
		d.regs[ads7924.RegReset] = 0x18
	case ads7924.AddressA0High:
		d.regs[ads7924.RegReset] = 0x19
	}
}

// Tx handles one combined write/read transaction.
func (d *Device) Tx(_ uint16, w, r []byte) error {
	if d.inFlight.Inc() > 1 {
		d.overlaps.Inc()
	}
	defer d.inFlight.Dec()
	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}

	if len(w) == 0 {
		return ErrProtocol
	}
	reg := w[0] &^ 0x80
	inc := w[0]&0x80 != 0

	d.mu.Lock()
	defer d.mu.Unlock()

	d.log = append(d.log, Transfer{Reg: reg, Inc: inc, Write: append([]byte(nil), w[1:]...), Read: len(r)})
	if d.consumeFailure(reg) {
		return ErrNAK
	}
	if int(reg)+max(len(w)-1, len(r)) > ads7924.RegisterSpan {
		return ErrProtocol
	}

	for i, v := range w[1:] {
		at := reg
		if inc {
			at += byte(i)
		}
		d.store(at, v)
	}
	for i := range r {
		at := reg
		if inc {
			at += byte(i)
		}
		r[i] = d.load(at)
	}
	return nil
}

func (d *Device) consumeFailure(reg byte) bool {
	for _, k := range [2]byte{reg, AnyRegister} {
		if n := d.fail[k]; n > 0 {
			d.fail[k] = n - 1
			return true
		}
	}
	return false
}

func (d *Device) store(reg, v byte) {
	switch {
	case reg == ads7924.RegReset:
		if v == 0xAA {
			d.resets++
			d.powerUp()
		}
	case reg == ads7924.RegIntCntrl:
		d.regs[reg] = v & ads7924.IntCtrlEnableMask
	case reg >= ads7924.RegData0U && reg <= ads7924.RegData3L:
		// read-only
	default:
		d.regs[reg] = v
	}
}

func (d *Device) load(reg byte) byte {
	if reg == ads7924.RegIntCntrl {
		v := d.alarmed | d.regs[reg]
		d.alarmed = 0
		return v
	}
	return d.regs[reg]
}

// SetValue loads a 12-bit conversion result for channel ch.
func (d *Device) SetValue(ch int, v uint16) {
	d.SetRaw(ch, byte(v>>4), byte(v<<4))
}

// SetRaw loads DATAn_U and DATAn_L directly.
func (d *Device) SetRaw(ch int, upper, lower byte) {
	d.mu.Lock()
	d.regs[ads7924.RegData0U+byte(2*ch)] = upper
	d.regs[ads7924.RegData0L+byte(2*ch)] = lower
	d.mu.Unlock()
}

// Register returns a register without read side effects.
func (d *Device) Register(reg byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reg == ads7924.RegIntCntrl {
		return d.alarmed | d.regs[reg]
	}
	return d.regs[reg]
}

// SetRegister overwrites a register, bypassing write semantics.
func (d *Device) SetRegister(reg, v byte) {
	d.mu.Lock()
	d.regs[reg] = v
	d.mu.Unlock()
}

// Alarm latches alarm status for channel ch and reports whether its enable
// bit is set, i.e. whether the device would assert INT.
func (d *Device) Alarm(ch int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alarmed |= 1 << (ads7924.IntCtrlAlarmShift + ch)
	return d.regs[ads7924.RegIntCntrl]&(1<<ch) != 0
}

// FailNext makes the next n transfers addressing reg fail with ErrNAK.
func (d *Device) FailNext(reg byte, n int) {
	d.mu.Lock()
	d.fail[reg] += n
	d.mu.Unlock()
}

// Overlaps counts transfers that started while another was in flight.
func (d *Device) Overlaps() int32 { return d.overlaps.Load() }

// Resets counts software resets.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// Transfers returns a copy of the transaction log.
func (d *Device) Transfers() []Transfer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Transfer(nil), d.log...)
}

// ClearLog empties the transaction log.
func (d *Device) ClearLog() {
	d.mu.Lock()
	d.log = d.log[:0]
	d.mu.Unlock()
}
