package irqworker

import (
	"context"
	"sync"
	"testing"
	"time"

	"ads7924-go/services/adc/internal/halcore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLine implements halcore.IRQLine with minimal behaviour for tests.
type fakeLine struct {
	mu      sync.Mutex
	edge    halcore.Edge
	handler func()
	cleared int
}

func (l *fakeLine) SetIRQ(e halcore.Edge, h func()) error {
	l.mu.Lock()
	l.edge, l.handler = e, h
	l.mu.Unlock()
	return nil
}

func (l *fakeLine) ClearIRQ() error {
	l.mu.Lock()
	l.handler = nil
	l.cleared++
	l.mu.Unlock()
	return nil
}

func (l *fakeLine) fire() {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h()
	}
}

func TestWorkerRunsBottomHalfPerEdge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 8)
	line := &fakeLine{}
	w := New("int0", line, halcore.EdgeNone, func() { ran <- struct{}{} }, 8)
	require.NoError(t, w.Arm())
	assert.Equal(t, halcore.EdgeFalling, line.edge, "defaults to the active-low INT edge")

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	line.fire()
	line.fire()
	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for bottom-half")
		}
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, line.cleared)
	assert.EqualValues(t, 2, w.Runs())
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	line := &fakeLine{}
	w := New("int0", line, halcore.EdgeFalling, func() {}, 2)
	require.NoError(t, w.Arm())

	// Not running: the queue fills and the ISR must not block.
	for i := 0; i < 5; i++ {
		line.fire()
	}
	assert.EqualValues(t, 3, w.ISRDrops())
}
