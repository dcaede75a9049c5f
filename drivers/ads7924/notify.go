package ads7924

import (
	"context"
	"fmt"
	"sync"
)

// ReadPolicy selects whether a consuming read waits for an alarm update.
type ReadPolicy uint8

const (
	// ReadAwaitAlarm makes a read block once the cache has been consumed,
	// until the alarm path delivers a fresh value. The first read after
	// channel creation does not wait.
	ReadAwaitAlarm ReadPolicy = iota
	// ReadImmediate never blocks; a stale cache is re-fetched from the device.
	ReadImmediate
)

func (p ReadPolicy) String() string {
	switch p {
	case ReadAwaitAlarm:
		return "await_alarm"
	case ReadImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// notifier is the per-channel wake/poll pair.
//
// awoken is set by the alarm path and cleared by a poll query.
// waiting suppresses consuming reads until the alarm path clears it.
// Once shut, wake stays closed and every claim fails with ErrClosed.
type notifier struct {
	mu      sync.Mutex
	awoken  bool
	waiting bool
	shut    bool
	wake    chan struct{} // closed and replaced on every wake-up
}

func (n *notifier) init() { n.wake = make(chan struct{}) }

// wakeUp releases blocked readers and marks the channel ready for poll.
func (n *notifier) wakeUp() {
	n.mu.Lock()
	if n.shut {
		n.mu.Unlock()
		return
	}
	n.waiting = false
	n.awoken = true
	close(n.wake)
	n.wake = make(chan struct{})
	n.mu.Unlock()
}

// poll returns and clears the ready flag, plus a channel closed at the next wake-up.
func (n *notifier) poll() (bool, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := n.awoken
	n.awoken = false
	return r, n.wake
}

// shutdown releases every blocked reader for good.
func (n *notifier) shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.shut {
		return
	}
	n.shut = true
	n.awoken = false
	close(n.wake)
}

func (n *notifier) clearAwoken() {
	n.mu.Lock()
	n.awoken = false
	n.mu.Unlock()
}

// release lifts read suppression without signalling poll readiness.
func (n *notifier) release() {
	n.mu.Lock()
	n.waiting = false
	n.mu.Unlock()
}

// claim admits one consuming read. Under ReadAwaitAlarm it sets waiting so
// that later reads block until the next wake-up.
func (n *notifier) claim(ctx context.Context, p ReadPolicy, nonBlock bool) error {
	for {
		n.mu.Lock()
		if n.shut {
			n.mu.Unlock()
			return ErrClosed
		}
		if p == ReadImmediate {
			n.mu.Unlock()
			return nil
		}
		if !n.waiting {
			n.waiting = true
			n.mu.Unlock()
			return nil
		}
		ch := n.wake
		n.mu.Unlock()

		if nonBlock {
			return ErrWouldBlock
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
	}
}
