package irqworker

import (
	"context"

	"ads7924-go/services/adc/internal/halcore"

	"go.uber.org/atomic"
)

// Worker is the bottom-half task for one alarm line. The line's ISR only
// queues a token; the worker goroutine runs the bus work.
type Worker struct {
	name string
	line halcore.IRQLine
	edge halcore.Edge
	run  func()

	// Written by ISR; MUST NOT block the ISR:
	isrQ chan struct{}

	drops atomic.Uint32 // ISR drop counter
	runs  atomic.Uint32
	armed atomic.Bool
}

// New returns a worker that calls bottomHalf once per queued edge. isrBuf
// bounds the number of edges that may be pending; further edges are dropped
// while the queue is full, which is safe because every bottom-half run reads
// the current alarm status from hardware.
func New(name string, line halcore.IRQLine, edge halcore.Edge, bottomHalf func(), isrBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 4
	}
	if edge == halcore.EdgeNone {
		edge = halcore.EdgeFalling
	}
	return &Worker{
		name: name,
		line: line,
		edge: edge,
		run:  bottomHalf,
		isrQ: make(chan struct{}, isrBuf),
	}
}

// Name returns the source name.
func (w *Worker) Name() string { return w.name }

// Arm installs the ISR on the line.
func (w *Worker) Arm() error {
	if err := w.line.SetIRQ(w.edge, w.Kick); err != nil {
		return err
	}
	w.armed.Store(true)
	return nil
}

// Kick is the ISR handler: a non-blocking enqueue.
func (w *Worker) Kick() {
	select {
	case w.isrQ <- struct{}{}:
	default:
		w.drops.Inc() // protect ISR path
	}
}

// Run drains the queue until ctx is done, then removes the ISR.
func (w *Worker) Run(ctx context.Context) error {
	defer w.Disarm()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.isrQ:
			w.run()
			w.runs.Inc()
		}
	}
}

// Disarm removes the ISR if it is installed.
func (w *Worker) Disarm() error {
	if w.armed.CompareAndSwap(true, false) {
		return w.line.ClearIRQ()
	}
	return nil
}

// ISRDrops counts edges dropped because the queue was full.
func (w *Worker) ISRDrops() uint32 { return w.drops.Load() }

// Runs counts completed bottom-half runs.
func (w *Worker) Runs() uint32 { return w.runs.Load() }
