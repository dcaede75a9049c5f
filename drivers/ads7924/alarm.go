package ads7924

// AlarmState tracks the per-chip alarm procedure.
type AlarmState uint32

const (
	AlarmArmed AlarmState = iota
	AlarmReadingStatus
	AlarmDispatching
)

func (s AlarmState) String() string {
	switch s {
	case AlarmArmed:
		return "armed"
	case AlarmReadingStatus:
		return "reading_status"
	case AlarmDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// AlarmResult describes one HandleAlarm cycle.
type AlarmResult struct {
	Status    byte  // INTCNTRL as read
	Err       error // status read failure; the cycle was dropped
	Discarded bool  // first alarm after reset
	Updated   uint8 // bit n set: channel n refreshed and woken
	Failed    uint8 // bit n set: channel n re-read failed
}

// AlarmState returns where the alarm procedure currently is.
func (c *Chip) AlarmState() AlarmState { return AlarmState(c.state.Load()) }

// HandleAlarm runs the bottom-half for one INT edge. It must not be called
// from interrupt context since it performs bus transfers.
//
// Channels are visited in index order. A channel is refreshed only if it is
// configured, has at least one open handle and has its enable bit set in the
// status byte just read. A failed channel does not stop the others.
func (c *Chip) HandleAlarm() AlarmResult {
	var res AlarmResult
	c.state.Store(uint32(AlarmReadingStatus))
	defer c.state.Store(uint32(AlarmArmed))

	c.mu.Lock()
	status, err := c.bus.readByte(RegIntCntrl)
	if err == nil && c.afterReset {
		c.afterReset = false
		res.Discarded = true
	}
	c.mu.Unlock()

	if err != nil {
		res.Err = c.fail(err)
		return res
	}
	res.Status = status
	if res.Discarded {
		c.log.Debugw("alarm discarded after reset", "status", status)
		return res
	}

	c.state.Store(uint32(AlarmDispatching))
	for i, ch := range c.channels {
		if ch == nil || ch.Opens() == 0 || status&(1<<i) == 0 {
			continue
		}
		if err := ch.ReadValue(); err != nil {
			res.Failed |= 1 << i
			continue
		}
		ch.wakeUp()
		res.Updated |= 1 << i
	}
	return res
}
