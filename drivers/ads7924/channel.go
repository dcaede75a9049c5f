package ads7924

import (
	"context"
	"encoding/binary"
	"io"
	"sync"

	"go.uber.org/atomic"
)

// Channel is one analog input of a Chip.
type Channel struct {
	chip  *Chip
	index int

	mu     sync.Mutex // guards value, valid, format; never held across a bus transfer
	value  uint16
	valid  bool
	format Format

	opens atomic.Int32
	n     notifier
}

func newChannel(c *Chip, i int) *Channel {
	ch := &Channel{chip: c, index: i}
	ch.n.init()
	return ch
}

// Index returns the input number 0..3.
func (ch *Channel) Index() int { return ch.index }

// Chip returns the owning chip.
func (ch *Channel) Chip() *Chip { return ch.chip }

// Opens returns the number of client handles currently open on the channel.
func (ch *Channel) Opens() int32 { return ch.opens.Load() }

// Acquire records a new client handle. The first handle starts with poll
// readiness cleared.
func (ch *Channel) Acquire() int32 {
	n := ch.opens.Inc()
	if n == 1 {
		ch.n.clearAwoken()
	}
	return n
}

// Release drops a client handle and returns the resulting count.
func (ch *Channel) Release() int32 { return ch.opens.Dec() }

// ReadValue fetches DATAn_U/L in one transfer and stores the 12-bit result.
func (ch *Channel) ReadValue() error {
	var raw [2]byte
	c := ch.chip
	c.mu.Lock()
	err := c.bus.read(dataReg(ch.index), raw[:])
	c.mu.Unlock()

	ch.mu.Lock()
	if err != nil {
		ch.valid = false
	} else {
		ch.value = binary.BigEndian.Uint16(raw[:]) >> 4
		ch.valid = true
	}
	ch.mu.Unlock()

	if err != nil {
		return c.fail(err)
	}
	return nil
}

// Cached returns the cached value and whether it is fresh.
func (ch *Channel) Cached() (uint16, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.value, ch.valid
}

// Format returns the selected output format.
func (ch *Channel) Format() Format {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.format
}

// SetFormat selects the output format.
func (ch *Channel) SetFormat(f Format) {
	ch.mu.Lock()
	ch.format = f
	ch.mu.Unlock()
}

// Consume appends the cached value in the selected format to dst and marks
// the cache stale. A stale cache is first re-fetched from the device.
func (ch *Channel) Consume(dst []byte) ([]byte, error) {
	ch.mu.Lock()
	valid := ch.valid
	ch.mu.Unlock()
	if !valid {
		if err := ch.ReadValue(); err != nil {
			return dst, err
		}
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.valid = false
	return AppendFormat(dst, ch.value, ch.format), nil
}

// SetUpperLimit writes ULRn.
func (ch *Channel) SetUpperLimit(v uint8) error { return ch.chip.writeByte(upperReg(ch.index), v) }

// UpperLimit reads ULRn.
func (ch *Channel) UpperLimit() (uint8, error) { return ch.chip.readByte(upperReg(ch.index)) }

// SetLowerLimit writes LLRn.
func (ch *Channel) SetLowerLimit(v uint8) error { return ch.chip.writeByte(lowerReg(ch.index), v) }

// LowerLimit reads LLRn.
func (ch *Channel) LowerLimit() (uint8, error) { return ch.chip.readByte(lowerReg(ch.index)) }

// EnableAlarm sets this channel's alarm enable bit.
func (ch *Channel) EnableAlarm() error { return ch.chip.EditIntCtrl(1<<ch.index, 0) }

// DisableAlarm clears this channel's alarm enable bit.
func (ch *Channel) DisableAlarm() error { return ch.chip.EditIntCtrl(0, 1<<ch.index) }

// Poll returns and clears the data-ready flag. The returned channel is
// closed at the next alarm update. It never blocks.
func (ch *Channel) Poll() (bool, <-chan struct{}) { return ch.n.poll() }

// Shutdown fails every current and future consuming read with ErrClosed.
func (ch *Channel) Shutdown() { ch.n.shutdown() }

// wakeUp signals readers and pollers after an alarm update.
func (ch *Channel) wakeUp() { ch.n.wakeUp() }

// Reader delivers consumed values to one client handle. Each value is
// rendered once, then served across as many reads as the caller needs;
// a read past the end returns io.EOF and the next read consumes anew.
type Reader struct {
	ch       *Channel
	nonBlock bool

	mu   sync.Mutex
	buf  [MaxFormatted]byte
	snap []byte
	off  int
}

// NewReader returns a Reader for one handle. A non-blocking reader fails
// with ErrWouldBlock instead of waiting.
func (ch *Channel) NewReader(nonBlock bool) *Reader {
	return &Reader{ch: ch, nonBlock: nonBlock}
}

// Read copies the current value into p. At offset zero it consumes the cache,
// which under ReadAwaitAlarm may wait for the alarm path; cancelling ctx
// returns ErrInterrupted.
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}
	if r.off == 0 {
		ch := r.ch
		if err := ch.n.claim(ctx, ch.chip.policy, r.nonBlock); err != nil {
			return 0, err
		}
		snap, err := ch.Consume(r.buf[:0])
		if err != nil {
			ch.n.release()
			return 0, err
		}
		r.snap = snap
	}

	if r.off >= len(r.snap) {
		r.off = 0
		r.snap = nil
		return 0, io.EOF
	}
	n := copy(p, r.snap[r.off:])
	r.off += n
	return n, nil
}
