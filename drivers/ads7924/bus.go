package ads7924

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// RegisterError reports a failed register transfer.
type RegisterError struct {
	Op   string // "read" or "write"
	Addr uint16
	Reg  byte
	Err  error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("ads7924 0x%02x: %s %s (0x%02x): %v", e.Addr, e.Op, RegisterName(e.Reg), e.Reg, e.Err)
}

func (e *RegisterError) Unwrap() error { return e.Err }

// regBus is the byte-addressed register protocol for one chip.
// It is not safe for concurrent use; Chip serializes access under its lock.
type regBus struct {
	i2c  drivers.I2C
	addr uint16
	w    [1 + RegisterSpan]byte
}

// address returns the wire address byte for a transfer of n registers from reg.
// Bounds violations are programming errors.
func address(reg byte, n int) byte {
	if n < 1 || int(reg)+n > RegisterSpan {
		panic(fmt.Sprintf("ads7924: register range 0x%02x+%d out of bounds", reg, n))
	}
	if n > 1 {
		return reg | autoIncrement
	}
	return reg
}

// read fills p from consecutive registers starting at reg in one transaction.
func (b *regBus) read(reg byte, p []byte) error {
	b.w[0] = address(reg, len(p))
	if err := b.i2c.Tx(b.addr, b.w[:1], p); err != nil {
		return &RegisterError{Op: "read", Addr: b.addr, Reg: reg, Err: err}
	}
	return nil
}

// write stores p into consecutive registers starting at reg in one transaction.
func (b *regBus) write(reg byte, p []byte) error {
	b.w[0] = address(reg, len(p))
	n := copy(b.w[1:], p)
	if err := b.i2c.Tx(b.addr, b.w[:1+n], nil); err != nil {
		return &RegisterError{Op: "write", Addr: b.addr, Reg: reg, Err: err}
	}
	return nil
}

func (b *regBus) readByte(reg byte) (byte, error) {
	var r [1]byte
	err := b.read(reg, r[:])
	return r[0], err
}

func (b *regBus) writeByte(reg, v byte) error {
	return b.write(reg, []byte{v})
}
