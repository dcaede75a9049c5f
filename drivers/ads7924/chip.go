// Package ads7924 provides a driver for the TI ADS7924 four-channel 12-bit
// I2C ADC.
//
// A Chip owns one device on a bus and serializes every register transfer
// under its lock. Channels hang off their chip and cache the last converted
// value; the alarm path refreshes that cache when the device raises its
// shared INT line:
//
//	c := ads7924.New(bus, ads7924.Config{Address: ads7924.AddressA0Low})
//	if err := c.Verify(); err != nil { ... }
//	_ = c.Reset()
//	ch, _ := c.AddChannel(0)
//	_ = ch.EnableAlarm()
//	...
//	res := c.HandleAlarm() // from the interrupt bottom-half
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package ads7924

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrNotPresent    = errors.New("ads7924: device not present")
	ErrChannelRange  = errors.New("ads7924: channel index out of range")
	ErrChannelExists = errors.New("ads7924: channel already configured")
	ErrWouldBlock    = errors.New("ads7924: would block")
	ErrInterrupted   = errors.New("ads7924: interrupted")
	ErrClosed        = errors.New("ads7924: channel shut down")
)

// ConfigReg names one of the plain read-modify-write configuration registers.
type ConfigReg byte

const (
	IntConfig ConfigReg = RegIntConfig
	SlpConfig ConfigReg = RegSlpConfig
	AcqConfig ConfigReg = RegAcqConfig
	PwrConfig ConfigReg = RegPwrConfig
)

func (r ConfigReg) String() string { return RegisterName(byte(r)) }

func (r ConfigReg) valid() bool {
	switch r {
	case IntConfig, SlpConfig, AcqConfig, PwrConfig:
		return true
	}
	return false
}

// Config controls non-hardware behaviour.
type Config struct {
	// Address defaults to AddressA0Low if zero.
	Address uint16
	// Policy selects how a consuming channel read waits for fresh data.
	Policy ReadPolicy
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Chip is one ADS7924 on one bus.
type Chip struct {
	mu         sync.Mutex // guards bus, shadow, afterReset
	bus        regBus
	shadow     byte // INTCNTRL as last written
	afterReset bool

	opens  atomic.Int32
	state  atomic.Uint32 // AlarmState
	policy ReadPolicy
	log    *zap.SugaredLogger

	channels [NumChannels]*Channel
}

// New creates a Chip on an already configured bus. It does not touch the device.
func New(bus drivers.I2C, cfg Config) *Chip {
	if cfg.Address == 0 {
		cfg.Address = AddressA0Low
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Chip{
		bus:    regBus{i2c: bus, addr: cfg.Address},
		policy: cfg.Policy,
		log:    cfg.Logger.With("chip", fmt.Sprintf("0x%02x", cfg.Address)),
	}
}

// Address returns the chip's I2C address.
func (c *Chip) Address() uint16 { return c.bus.addr }

// Opens returns the number of client handles currently open on the chip.
func (c *Chip) Opens() int32 { return c.opens.Load() }

// Acquire records a new client handle and returns the resulting count.
func (c *Chip) Acquire() int32 { return c.opens.Inc() }

// Release drops a client handle and returns the resulting count.
func (c *Chip) Release() int32 { return c.opens.Dec() }

// Channel returns the configured channel i, or nil.
func (c *Chip) Channel(i int) *Channel {
	if i < 0 || i >= NumChannels {
		return nil
	}
	return c.channels[i]
}

// AddChannel configures input i. Channels must be added before the alarm
// path or clients can reach the chip.
func (c *Chip) AddChannel(i int) (*Channel, error) {
	if i < 0 || i >= NumChannels {
		return nil, fmt.Errorf("%w: %d", ErrChannelRange, i)
	}
	if c.channels[i] != nil {
		return nil, fmt.Errorf("%w: %d", ErrChannelExists, i)
	}
	ch := newChannel(c, i)
	c.channels[i] = ch
	return ch, nil
}

// Verify checks that the device ID matches the one expected for the address.
// A mismatch, or an address with no known ID, means the device is not present.
func (c *Chip) Verify() error {
	want, ok := expectedStatus(c.bus.addr)
	if !ok {
		return fmt.Errorf("%w: unsupported address 0x%02x", ErrNotPresent, c.bus.addr)
	}
	got, err := c.ReadStatus()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: status 0x%02x at address 0x%02x, want 0x%02x", ErrNotPresent, got, c.bus.addr, want)
	}
	return nil
}

// Reset issues a software reset. On success the shadow INTCNTRL is cleared
// and the next alarm is discarded, since the reset itself can assert INT.
func (c *Chip) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bus.writeByte(RegReset, resetCommand); err != nil {
		return c.fail(err)
	}
	c.shadow = 0
	c.afterReset = true
	return nil
}

// ReadStatus reads the RESET register, which holds the device ID.
func (c *Chip) ReadStatus() (byte, error) { return c.readByte(RegReset) }

// ReadMode returns the MODECNTRL mode field.
func (c *Chip) ReadMode() (Mode, error) {
	v, err := c.readByte(RegModeCntrl)
	return Mode(v & ModeMask), err
}

// WriteMode writes MODECNTRL.
func (c *Chip) WriteMode(m Mode) error { return c.writeByte(RegModeCntrl, byte(m)) }

// ReadIntCtrl reads INTCNTRL. The device clears the alarm status bits on read.
func (c *Chip) ReadIntCtrl() (byte, error) { return c.readByte(RegIntCntrl) }

// WriteIntCtrl writes INTCNTRL and records it as the shadow on success.
func (c *Chip) WriteIntCtrl(v byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bus.writeByte(RegIntCntrl, v); err != nil {
		return c.fail(err)
	}
	c.shadow = v
	return nil
}

// EditIntCtrl clears then sets bits of INTCNTRL starting from the shadow,
// never from a bus read, so pending alarm status is not consumed.
func (c *Chip) EditIntCtrl(set, clear byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := (c.shadow &^ clear) | set
	if err := c.bus.writeByte(RegIntCntrl, v); err != nil {
		return c.fail(err)
	}
	c.shadow = v
	return nil
}

// Shadow returns the software copy of INTCNTRL.
func (c *Chip) Shadow() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shadow
}

// JustReset reports whether the next alarm will be discarded.
func (c *Chip) JustReset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afterReset
}

// ReadConfig reads one of the configuration registers.
func (c *Chip) ReadConfig(r ConfigReg) (byte, error) {
	mustConfig(r)
	return c.readByte(byte(r))
}

// WriteConfig writes one of the configuration registers.
func (c *Chip) WriteConfig(r ConfigReg, v byte) error {
	mustConfig(r)
	return c.writeByte(byte(r), v)
}

// EditConfig reads r, clears then sets the given bits and writes it back,
// all under one hold of the chip lock.
func (c *Chip) EditConfig(r ConfigReg, set, clear byte) error {
	mustConfig(r)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.bus.readByte(byte(r))
	if err != nil {
		return c.fail(err)
	}
	v = (v &^ clear) | set
	if err := c.bus.writeByte(byte(r), v); err != nil {
		return c.fail(err)
	}
	return nil
}

func mustConfig(r ConfigReg) {
	if !r.valid() {
		panic(fmt.Sprintf("ads7924: 0x%02x is not a config register", byte(r)))
	}
}

func (c *Chip) readByte(reg byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.bus.readByte(reg)
	if err != nil {
		return 0, c.fail(err)
	}
	return v, nil
}

func (c *Chip) writeByte(reg, v byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bus.writeByte(reg, v); err != nil {
		return c.fail(err)
	}
	return nil
}

// fail logs a transport error once with its register name and passes it on.
func (c *Chip) fail(err error) error {
	var re *RegisterError
	if errors.As(err, &re) {
		c.log.Warnw("register transfer failed", "op", re.Op, "register", RegisterName(re.Reg), "error", re.Err)
	}
	return err
}
