package adc

import (
	"bufio"
	"fmt"
	"io"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/x/conv"
)

// RegValue is one register sample; Err is set when the read failed.
type RegValue struct {
	Reg   byte
	Value byte
	Err   error
}

// Snapshot is a point-in-time view of the whole topology.
type Snapshot struct {
	Version string
	Policy  string
	Chips   []ChipSnapshot
	Lines   []LineStats
}

// ChipSnapshot describes one chip. IntCtrl is the driver's shadow of
// INTCNTRL; reading the register would consume pending alarm status.
type ChipSnapshot struct {
	Name      string
	Minor     int
	Bus       int
	Address   uint16
	Opens     int32
	JustReset bool
	Alarm     string
	Mode      RegValue
	IntCtrl   byte
	Config    []RegValue
	Channels  []ChannelSnapshot
}

// ChannelSnapshot describes one channel.
type ChannelSnapshot struct {
	Name   string
	Minor  int
	Index  int
	Opens  int32
	Format string
	Value  uint16
	Valid  bool
	Upper  RegValue
	Lower  RegValue
}

var reportConfigs = []ads7924.ConfigReg{ads7924.IntConfig, ads7924.SlpConfig, ads7924.AcqConfig, ads7924.PwrConfig}

// Snapshot reads live register state for every chip and channel.
func (d *Driver) Snapshot() Snapshot {
	s := Snapshot{Version: Version, Policy: d.opts.Policy.String(), Lines: d.Stats()}
	for _, ct := range d.Chips() {
		c := ct.chip
		cs := ChipSnapshot{
			Name:      ct.name,
			Minor:     ct.minor,
			Bus:       ct.bus,
			Address:   c.Address(),
			Opens:     c.Opens(),
			JustReset: c.JustReset(),
			Alarm:     c.AlarmState().String(),
			IntCtrl:   c.Shadow(),
		}
		m, err := c.ReadMode()
		cs.Mode = RegValue{Reg: ads7924.RegModeCntrl, Value: byte(m), Err: err}
		for _, r := range reportConfigs {
			v, err := c.ReadConfig(r)
			cs.Config = append(cs.Config, RegValue{Reg: byte(r), Value: v, Err: err})
		}
		for _, cht := range ct.Channels() {
			ch := cht.channel
			v, ok := ch.Cached()
			chs := ChannelSnapshot{
				Name:   cht.name,
				Minor:  cht.minor,
				Index:  ch.Index(),
				Opens:  ch.Opens(),
				Format: ch.Format().String(),
				Value:  v,
				Valid:  ok,
			}
			u, err := ch.UpperLimit()
			chs.Upper = RegValue{Reg: ads7924.RegULR0 + byte(2*ch.Index()), Value: u, Err: err}
			l, err := ch.LowerLimit()
			chs.Lower = RegValue{Reg: ads7924.RegLLR0 + byte(2*ch.Index()), Value: l, Err: err}
			cs.Channels = append(cs.Channels, chs)
		}
		s.Chips = append(s.Chips, cs)
	}
	return s
}

// WriteReport renders the driver status as text. withTables adds the mode
// and command code listings.
func (d *Driver) WriteReport(w io.Writer, withTables bool) error {
	return d.Snapshot().Write(w, withTables)
}

// Write renders s as text.
func (s Snapshot) Write(w io.Writer, withTables bool) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s Version: %s\n", DeviceBaseName, s.Version)
	fmt.Fprintf(bw, "Read policy: %s\n", s.Policy)
	if withTables {
		writeTables(bw)
	}
	for _, l := range s.Lines {
		fmt.Fprintf(bw, "\nAlarm line %s: runs %d, dropped %d\n", l.Name, l.Runs, l.ISRDrops)
	}

	bus := -1
	var bits [8]byte
	for _, c := range s.Chips {
		if c.Bus != bus {
			bus = c.Bus
			fmt.Fprintf(bw, "\nI2C-bus number: %d\n", bus)
		}
		fmt.Fprintf(bw, "\t%s (minor %d):\n\t\tI2C-Address: 0x%02X\n", c.Name, c.Minor, c.Address)
		fmt.Fprintf(bw, "\t\tOpen-count: %d\n", c.Opens)
		fmt.Fprintf(bw, "\t\tAlarm: %s, just reset: %t\n", c.Alarm, c.JustReset)
		if c.Mode.Err != nil {
			fmt.Fprintf(bw, "\t\tCouldn't read mode on address 0x%02X!\n", c.Mode.Reg)
		} else {
			fmt.Fprintf(bw, "\t\tMODECNTRL: 0x%02X, %s\n", c.Mode.Value, ads7924.Mode(c.Mode.Value))
		}
		fmt.Fprintf(bw, "\t\tINTCNTRL:  0x%02X, %s\n", c.IntCtrl, conv.Bits8(bits[:], c.IntCtrl))
		for _, r := range c.Config {
			name := ads7924.RegisterName(r.Reg)
			if r.Err != nil {
				fmt.Fprintf(bw, "\t\tCouldn't read %s on address 0x%02X!\n", name, r.Reg)
				continue
			}
			fmt.Fprintf(bw, "\t\t%s: 0x%02X, %s\n", name, r.Value, conv.Bits8(bits[:], r.Value))
		}
		for _, ch := range c.Channels {
			fmt.Fprintf(bw, "\t\t%s (minor %d):\n", ch.Name, ch.Minor)
			fmt.Fprintf(bw, "\t\t\tOpen-count: %d\n", ch.Opens)
			fmt.Fprintf(bw, "\t\t\tReadmode: %s\n", ch.Format)
			if ch.Valid {
				fmt.Fprintf(bw, "\t\t\tValue: 0x%03X\n", ch.Value)
			} else {
				fmt.Fprintf(bw, "\t\t\tValue: stale\n")
			}
			writeLimit(bw, "ULR", ch.Index, ch.Upper)
			writeLimit(bw, "LLR", ch.Index, ch.Lower)
		}
	}
	return bw.Flush()
}

func writeLimit(w io.Writer, kind string, idx int, r RegValue) {
	if r.Err != nil {
		fmt.Fprintf(w, "\t\t\tCouldn't read %s%d on address 0x%02X!\n", kind, idx, r.Reg)
		return
	}
	fmt.Fprintf(w, "\t\t\t%s%d: 0x%02X\n", kind, idx, r.Value)
}

func writeTables(w io.Writer) {
	fmt.Fprintf(w, "Possible modes:\n")
	for _, m := range ads7924.ModeNames {
		fmt.Fprintf(w, " 0x%02X: %s\n", byte(m.Mode), m.Name)
	}
	fmt.Fprintf(w, "\nValid commands for ioctl() for entire chip access:\n")
	for _, c := range chipCommands {
		fmt.Fprintf(w, " 0x%08X:\t%s\n", uint32(c.code), c.name)
	}
	fmt.Fprintf(w, "\nValid commands for ioctl() for single channel access:\n")
	for _, c := range channelCommands {
		fmt.Fprintf(w, " 0x%08X:\t%s\n", uint32(c.code), c.name)
	}
}
