package adc

import (
	"fmt"

	"ads7924-go/drivers/ads7924"
	"ads7924-go/errcode"
	"ads7924-go/services/adc/internal/ioc"
)

// Opcode is an ioctl request code in the Linux _IOC layout.
type Opcode = ioc.Code

// Magic is the _IOC type byte of every command.
const Magic = 'a'

// Chip commands.
var (
	CmdReset        = ioc.IO(Magic, 0)
	CmdSetMode      = ioc.IOW(Magic, 1, 1)
	CmdGetMode      = ioc.IOR(Magic, 2, 1)
	CmdSetIntConfig = ioc.IOW(Magic, 3, 1)
	CmdGetIntConfig = ioc.IOR(Magic, 4, 1)
	CmdEditIntCfg   = ioc.IOW(Magic, 5, bitEditSize)
	CmdSetSlpConfig = ioc.IOW(Magic, 6, 1)
	CmdGetSlpConfig = ioc.IOR(Magic, 7, 1)
	CmdEditSlpCfg   = ioc.IOW(Magic, 8, bitEditSize)
	CmdSetAcqConfig = ioc.IOW(Magic, 9, 1)
	CmdGetAcqConfig = ioc.IOR(Magic, 10, 1)
	CmdEditAcqCfg   = ioc.IOW(Magic, 11, bitEditSize)
	CmdSetPwrConfig = ioc.IOW(Magic, 12, 1)
	CmdGetPwrConfig = ioc.IOR(Magic, 13, 1)
	CmdEditPwrCfg   = ioc.IOW(Magic, 14, bitEditSize)
)

// Channel commands.
var (
	CmdReadModeBin  = ioc.IO(Magic, 30)
	CmdReadModeDec  = ioc.IO(Magic, 31)
	CmdReadModeHex  = ioc.IO(Magic, 32)
	CmdSetULR       = ioc.IOW(Magic, 33, 1)
	CmdSetLLR       = ioc.IOW(Magic, 34, 1)
	CmdGetULR       = ioc.IOR(Magic, 35, 1)
	CmdGetLLR       = ioc.IOR(Magic, 36, 1)
	CmdAlarmEnable  = ioc.IO(Magic, 37)
	CmdAlarmDisable = ioc.IO(Magic, 38)
)

// BitAccess is a register byte addressed bit by bit.
type BitAccess uint8

// Bit reports bit i.
func (b BitAccess) Bit(i int) bool { return b&(1<<uint(i)) != 0 }

// WithBit returns b with bit i set or cleared.
func (b BitAccess) WithBit(i int, on bool) BitAccess {
	if on {
		return b | 1<<uint(i)
	}
	return b &^ (1 << uint(i))
}

const bitEditSize = 2

// BitEdit is the argument of the EDIT commands. The wire layout is
// {clear, set}; clear is applied first.
type BitEdit struct {
	Clear BitAccess
	Set   BitAccess
}

// Bytes encodes e as an ioctl argument.
func (e BitEdit) Bytes() []byte { return []byte{byte(e.Clear), byte(e.Set)} }

// DecodeBitEdit is the inverse of Bytes.
func DecodeBitEdit(p []byte) BitEdit { return BitEdit{Clear: BitAccess(p[0]), Set: BitAccess(p[1])} }

type chipCommand struct {
	name      string
	code      Opcode
	exclusive bool
	fn        func(c *ads7924.Chip, arg []byte) error
}

type channelCommand struct {
	name      string
	code      Opcode
	exclusive bool
	fn        func(ch *ads7924.Channel, arg []byte) error
}

func setConfig(r ads7924.ConfigReg) func(*ads7924.Chip, []byte) error {
	return func(c *ads7924.Chip, arg []byte) error { return c.WriteConfig(r, arg[0]) }
}

func getConfig(r ads7924.ConfigReg) func(*ads7924.Chip, []byte) error {
	return func(c *ads7924.Chip, arg []byte) (err error) {
		arg[0], err = c.ReadConfig(r)
		return err
	}
}

func editConfig(r ads7924.ConfigReg) func(*ads7924.Chip, []byte) error {
	return func(c *ads7924.Chip, arg []byte) error {
		e := DecodeBitEdit(arg)
		return c.EditConfig(r, byte(e.Set), byte(e.Clear))
	}
}

func setFormat(f ads7924.Format) func(*ads7924.Channel, []byte) error {
	return func(ch *ads7924.Channel, _ []byte) error {
		ch.SetFormat(f)
		return nil
	}
}

var chipCommands = []chipCommand{
	{"RESET", CmdReset, true, func(c *ads7924.Chip, _ []byte) error { return c.Reset() }},
	{"SET_MODE", CmdSetMode, false, func(c *ads7924.Chip, arg []byte) error { return c.WriteMode(ads7924.Mode(arg[0])) }},
	{"GET_MODE", CmdGetMode, false, func(c *ads7924.Chip, arg []byte) error {
		m, err := c.ReadMode()
		arg[0] = byte(m)
		return err
	}},
	{"SET_INTCONFIG", CmdSetIntConfig, false, setConfig(ads7924.IntConfig)},
	{"GET_INTCONFIG", CmdGetIntConfig, false, getConfig(ads7924.IntConfig)},
	{"EDIT_INTCONFIG", CmdEditIntCfg, false, editConfig(ads7924.IntConfig)},
	{"SET_SLPCONFIG", CmdSetSlpConfig, false, setConfig(ads7924.SlpConfig)},
	{"GET_SLPCONFIG", CmdGetSlpConfig, false, getConfig(ads7924.SlpConfig)},
	{"EDIT_SLPCONFIG", CmdEditSlpCfg, false, editConfig(ads7924.SlpConfig)},
	{"SET_ACQCONFIG", CmdSetAcqConfig, false, setConfig(ads7924.AcqConfig)},
	{"GET_ACQCONFIG", CmdGetAcqConfig, false, getConfig(ads7924.AcqConfig)},
	{"EDIT_ACQCONFIG", CmdEditAcqCfg, false, editConfig(ads7924.AcqConfig)},
	{"SET_PWRCONFIG", CmdSetPwrConfig, false, setConfig(ads7924.PwrConfig)},
	{"GET_PWRCONFIG", CmdGetPwrConfig, false, getConfig(ads7924.PwrConfig)},
	{"EDIT_PWRCONFIG", CmdEditPwrCfg, false, editConfig(ads7924.PwrConfig)},
}

var channelCommands = []channelCommand{
	{"READMODE_BIN", CmdReadModeBin, true, setFormat(ads7924.FormatBinary)},
	{"READMODE_DEC", CmdReadModeDec, true, setFormat(ads7924.FormatDecimal)},
	{"READMODE_HEX", CmdReadModeHex, true, setFormat(ads7924.FormatHex)},
	{"SET_ULR", CmdSetULR, false, func(ch *ads7924.Channel, arg []byte) error { return ch.SetUpperLimit(arg[0]) }},
	{"SET_LLR", CmdSetLLR, false, func(ch *ads7924.Channel, arg []byte) error { return ch.SetLowerLimit(arg[0]) }},
	{"GET_ULR", CmdGetULR, false, func(ch *ads7924.Channel, arg []byte) (err error) {
		arg[0], err = ch.UpperLimit()
		return err
	}},
	{"GET_LLR", CmdGetLLR, false, func(ch *ads7924.Channel, arg []byte) (err error) {
		arg[0], err = ch.LowerLimit()
		return err
	}},
	{"ALARM_ENABLE", CmdAlarmEnable, false, func(ch *ads7924.Channel, _ []byte) error { return ch.EnableAlarm() }},
	{"ALARM_DISABLE", CmdAlarmDisable, false, func(ch *ads7924.Channel, _ []byte) error { return ch.DisableAlarm() }},
}

var (
	chipIndex    = map[Opcode]*chipCommand{}
	channelIndex = map[Opcode]*channelCommand{}
)

func init() {
	for i := range chipCommands {
		chipIndex[chipCommands[i].code] = &chipCommands[i]
	}
	for i := range channelCommands {
		channelIndex[channelCommands[i].code] = &channelCommands[i]
	}
}

// checkArg verifies the argument buffer holds the size encoded in code.
func checkArg(op string, code Opcode, arg []byte) error {
	if len(arg) < code.Size() {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: fmt.Sprintf("argument %d bytes, need %d", len(arg), code.Size())}
	}
	return nil
}

func dispatchChip(t *ChipTarget, code Opcode, arg []byte) error {
	cmd, ok := chipIndex[code]
	if !ok {
		return &errcode.E{C: errcode.UnknownCommand, Op: "ioctl " + t.name, Msg: code.String()}
	}
	op := "ioctl " + t.name + " " + cmd.name
	if err := checkArg(op, code, arg); err != nil {
		return err
	}
	if cmd.exclusive && t.chip.Opens() > 1 {
		return &errcode.E{C: errcode.MultipleInstances, Op: op}
	}
	return mapErr(op, cmd.fn(t.chip, arg))
}

func dispatchChannel(t *ChannelTarget, code Opcode, arg []byte) error {
	cmd, ok := channelIndex[code]
	if !ok {
		return &errcode.E{C: errcode.UnknownCommand, Op: "ioctl " + t.name, Msg: code.String()}
	}
	op := "ioctl " + t.name + " " + cmd.name
	if err := checkArg(op, code, arg); err != nil {
		return err
	}
	if cmd.exclusive && t.channel.Opens() > 1 {
		return &errcode.E{C: errcode.MultipleInstances, Op: op}
	}
	return mapErr(op, cmd.fn(t.channel, arg))
}

// OpcodeInfo describes one command for listings.
type OpcodeInfo struct {
	Name    string
	Code    Opcode
	Channel bool
}

// Opcodes lists chip commands then channel commands in code order.
func Opcodes() []OpcodeInfo {
	out := make([]OpcodeInfo, 0, len(chipCommands)+len(channelCommands))
	for _, c := range chipCommands {
		out = append(out, OpcodeInfo{Name: c.name, Code: c.code})
	}
	for _, c := range channelCommands {
		out = append(out, OpcodeInfo{Name: c.name, Code: c.code, Channel: true})
	}
	return out
}

// LookupOpcode finds a command by name, e.g. "GET_ULR".
func LookupOpcode(name string) (OpcodeInfo, bool) {
	for _, o := range Opcodes() {
		if o.Name == name {
			return o, true
		}
	}
	return OpcodeInfo{}, false
}
