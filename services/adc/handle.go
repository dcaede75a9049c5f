package adc

import (
	"context"
	"errors"
	"io"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/errcode"

	"go.uber.org/atomic"
)

// OpenFlags modify handle behaviour.
type OpenFlags uint8

const (
	// OpenNonBlock makes reads fail with errcode.WouldBlock instead of waiting.
	OpenNonBlock OpenFlags = 1 << iota
)

// session is the per-kind half of a Handle.
type session interface {
	read(ctx context.Context, p []byte) (int, error)
	poll() (bool, <-chan struct{})
	ioctl(code Opcode, arg []byte) error
}

// Handle is one open instance of a chip or channel.
type Handle struct {
	d      *Driver
	target Target
	s      session
	closed atomic.Bool
}

// Open resolves minor and opens it.
func (d *Driver) Open(minor int, flags OpenFlags) (*Handle, error) {
	if d.closed.Load() {
		return nil, errcode.Closed
	}
	t, err := d.Resolve(minor)
	if err != nil {
		return nil, err
	}
	return d.open(t, flags), nil
}

// OpenName resolves a device name such as "ads79240A2" and opens it.
func (d *Driver) OpenName(name string, flags OpenFlags) (*Handle, error) {
	if d.closed.Load() {
		return nil, errcode.Closed
	}
	t, err := d.ResolveName(name)
	if err != nil {
		return nil, err
	}
	return d.open(t, flags), nil
}

func (d *Driver) open(t Target, flags OpenFlags) *Handle {
	t.acquire()
	return &Handle{d: d, target: t, s: t.newSession(flags&OpenNonBlock != 0)}
}

// Target returns the opened object.
func (h *Handle) Target() Target { return h.target }

// Close releases the handle. Further calls are no-ops.
func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.target.release()
	return nil
}

func (h *Handle) usable(op string) error {
	if h.closed.Load() || h.d.closed.Load() {
		return &errcode.E{C: errcode.Closed, Op: op, Msg: h.target.Name()}
	}
	return nil
}

// Read returns formatted samples from a channel. A chip has nothing to read.
func (h *Handle) Read(ctx context.Context, p []byte) (int, error) {
	if err := h.usable("read"); err != nil {
		return 0, err
	}
	n, err := h.s.read(ctx, p)
	if err != nil && err != io.EOF {
		return n, mapErr("read "+h.target.Name(), err)
	}
	return n, err
}

// Write accepts and discards p.
func (h *Handle) Write(p []byte) (int, error) {
	if err := h.usable("write"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Poll reports and clears readiness without blocking. The channel closes at
// the next alarm notification. A chip, or a closed handle, is never ready.
func (h *Handle) Poll() (bool, <-chan struct{}) {
	if h.usable("poll") != nil {
		return false, never
	}
	return h.s.poll()
}

// Ioctl runs the command code against the handle's object. arg carries the
// command argument in and, for get commands, the result out.
func (h *Handle) Ioctl(code Opcode, arg []byte) error {
	if err := h.usable("ioctl"); err != nil {
		return err
	}
	return h.s.ioctl(code, arg)
}

// ---- chip ----

type chipSession struct{ t *ChipTarget }

func (t *ChipTarget) newSession(bool) session { return chipSession{t: t} }

func (chipSession) read(context.Context, []byte) (int, error) { return 0, io.EOF }

// never is shared by every chip handle; it is never closed.
var never = make(chan struct{})

func (chipSession) poll() (bool, <-chan struct{}) { return false, never }

func (s chipSession) ioctl(code Opcode, arg []byte) error {
	return dispatchChip(s.t, code, arg)
}

// ---- channel ----

type channelSession struct {
	t *ChannelTarget
	r *ads7924.Reader
}

func (t *ChannelTarget) newSession(nonBlock bool) session {
	return channelSession{t: t, r: t.channel.NewReader(nonBlock)}
}

func (s channelSession) read(ctx context.Context, p []byte) (int, error) {
	return s.r.Read(ctx, p)
}

func (s channelSession) poll() (bool, <-chan struct{}) { return s.t.channel.Poll() }

func (s channelSession) ioctl(code Opcode, arg []byte) error {
	return dispatchChannel(s.t, code, arg)
}

// mapErr attaches the client-facing code for a driver error.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *errcode.E
	if errors.As(err, &ce) {
		return err
	}
	var re *ads7924.RegisterError
	switch {
	case errors.Is(err, ads7924.ErrWouldBlock):
		return errcode.Wrap(errcode.WouldBlock, op, err)
	case errors.Is(err, ads7924.ErrInterrupted):
		return errcode.Wrap(errcode.Interrupted, op, err)
	case errors.Is(err, ads7924.ErrClosed):
		return errcode.Wrap(errcode.Closed, op, err)
	case errors.Is(err, ads7924.ErrNotPresent):
		return errcode.Wrap(errcode.NotPresent, op, err)
	case errors.Is(err, ads7924.ErrChannelRange), errors.Is(err, ads7924.ErrChannelExists):
		return errcode.Wrap(errcode.InvalidParams, op, err)
	case errors.As(err, &re):
		return errcode.Wrap(errcode.IOError, op, err)
	}
	return errcode.Wrap(errcode.Error, op, err)
}
