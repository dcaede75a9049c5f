package adc

import (
	"fmt"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/errcode"
	"ads7924-go/services/adc/config"

	"tinygo.org/x/drivers"
)

// DeviceBaseName prefixes every chip and channel name.
const DeviceBaseName = "ads7924"

// Target is a resolvable object: a *ChipTarget or a *ChannelTarget.
type Target interface {
	Minor() int
	Name() string

	acquire() int32
	release() int32
	newSession(nonBlock bool) session
}

// busNode is one bus in the arena. Slot 0 holds the chip at 0x48, slot 1 at 0x49.
type busNode struct {
	id     int
	device string
	i2c    drivers.I2C
	chips  [config.MaxChipsPerBus]*ChipTarget
}

// ChipTarget is the registry record of one chip.
type ChipTarget struct {
	minor    int
	name     string
	bus      int
	slot     int
	chip     *ads7924.Chip
	channels [ads7924.NumChannels]*ChannelTarget
}

func (t *ChipTarget) Minor() int          { return t.minor }
func (t *ChipTarget) Name() string        { return t.name }
func (t *ChipTarget) Bus() int            { return t.bus }
func (t *ChipTarget) Chip() *ads7924.Chip { return t.chip }
func (t *ChipTarget) acquire() int32      { return t.chip.Acquire() }
func (t *ChipTarget) release() int32      { return t.chip.Release() }

// Channels returns the configured channels in index order.
func (t *ChipTarget) Channels() []*ChannelTarget {
	out := make([]*ChannelTarget, 0, ads7924.NumChannels)
	for _, ch := range t.channels {
		if ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// ChannelTarget is the registry record of one channel.
type ChannelTarget struct {
	minor   int
	name    string
	parent  *ChipTarget
	channel *ads7924.Channel
}

func (t *ChannelTarget) Minor() int                { return t.minor }
func (t *ChannelTarget) Name() string              { return t.name }
func (t *ChannelTarget) Parent() *ChipTarget       { return t.parent }
func (t *ChannelTarget) Channel() *ads7924.Channel { return t.channel }
func (t *ChannelTarget) acquire() int32            { return t.channel.Acquire() }
func (t *ChannelTarget) release() int32            { return t.channel.Release() }

// ChipName returns e.g. "ads79241B" for the chip at 0x49 on bus 1.
func ChipName(bus, slot int) string {
	return fmt.Sprintf("%s%d%c", DeviceBaseName, bus, 'A'+slot)
}

// ChannelName returns e.g. "ads79241B3".
func ChannelName(bus, slot, index int) string {
	return fmt.Sprintf("%s%d%c%d", DeviceBaseName, bus, 'A'+slot, index)
}

func slotOf(addr uint16) (int, bool) {
	switch addr {
	case ads7924.AddressA0Low:
		return 0, true
	case ads7924.AddressA0High:
		return 1, true
	}
	return 0, false
}

// each visits every chip in bus then slot order until fn returns false.
func (d *Driver) each(fn func(*ChipTarget) bool) {
	for _, b := range d.buses {
		if b == nil {
			continue
		}
		for _, c := range b.chips {
			if c != nil && !fn(c) {
				return
			}
		}
	}
}

// Resolve finds the chip or channel with the given minor.
func (d *Driver) Resolve(minor int) (Target, error) {
	return d.find(func(t Target) bool { return t.Minor() == minor }, fmt.Sprintf("minor %d", minor))
}

// ResolveName finds the chip or channel with the given device name.
func (d *Driver) ResolveName(name string) (Target, error) {
	return d.find(func(t Target) bool { return t.Name() == name }, name)
}

func (d *Driver) find(match func(Target) bool, what string) (Target, error) {
	if d.closed.Load() {
		return nil, &errcode.E{C: errcode.Closed, Op: "resolve", Msg: what}
	}
	var found Target
	d.each(func(c *ChipTarget) bool {
		if match(c) {
			found = c
			return false
		}
		for _, ch := range c.channels {
			if ch != nil && match(ch) {
				found = ch
				return false
			}
		}
		return true
	})
	if found == nil {
		return nil, &errcode.E{C: errcode.NotFound, Op: "resolve", Msg: what}
	}
	return found, nil
}

// Chips returns every chip record in bus then slot order.
func (d *Driver) Chips() []*ChipTarget {
	var out []*ChipTarget
	d.each(func(c *ChipTarget) bool {
		out = append(out, c)
		return true
	})
	return out
}
