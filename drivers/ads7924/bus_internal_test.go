package ads7924

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recI2C struct {
	w   []byte
	rn  int
	err error
}

func (f *recI2C) Tx(_ uint16, w, r []byte) error {
	f.w = append([]byte(nil), w...)
	f.rn = len(r)
	return f.err
}

func TestAddressFlagsMultiByteTransfers(t *testing.T) {
	assert.Equal(t, byte(RegModeCntrl), address(RegModeCntrl, 1))
	assert.Equal(t, byte(RegData2U|autoIncrement), address(RegData2U, 2))
	assert.Equal(t, byte(RegModeCntrl|autoIncrement), address(RegModeCntrl, RegisterSpan))
}

func TestAddressBoundsPanic(t *testing.T) {
	assert.Panics(t, func() { address(RegReset, 2) })
	assert.Panics(t, func() { address(RegModeCntrl, 0) })
	assert.Panics(t, func() { address(RegisterSpan, 1) })
	assert.NotPanics(t, func() { address(RegReset, 1) })
}

func TestWriteSendsAddressThenData(t *testing.T) {
	f := &recI2C{}
	b := regBus{i2c: f, addr: AddressA0Low}
	require.NoError(t, b.write(RegULR1, []byte{0x42, 0x10}))
	assert.Equal(t, []byte{RegULR1 | autoIncrement, 0x42, 0x10}, f.w)
	assert.Equal(t, 0, f.rn)
}

func TestRegisterErrorNamesRegister(t *testing.T) {
	cause := errors.New("nak")
	b := regBus{i2c: &recI2C{err: cause}, addr: AddressA0High}
	_, err := b.readByte(RegAcqConfig)
	var re *RegisterError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "read", re.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ACQCONFIG")
	assert.Contains(t, err.Error(), "0x49")
}

func TestRegisterName(t *testing.T) {
	assert.Equal(t, "MODECNTRL", RegisterName(RegModeCntrl))
	assert.Equal(t, "DATA3_L", RegisterName(RegData3L))
	assert.Equal(t, "RESET", RegisterName(RegReset))
	assert.Equal(t, "unknown", RegisterName(0x40))
}

func TestChannelRegisters(t *testing.T) {
	assert.Equal(t, byte(RegData3U), dataReg(3))
	assert.Equal(t, byte(RegULR2), upperReg(2))
	assert.Equal(t, byte(RegLLR3), lowerReg(3))
}

func TestAlarmCount(t *testing.T) {
	assert.Equal(t, byte(IntCfgAIMCNT0), AlarmCount(1))
	assert.Equal(t, byte(IntCfgAIMCNT1), AlarmCount(2))
	assert.Equal(t, byte(IntCfgAIMCNT2|IntCfgAIMCNT1|IntCfgAIMCNT0), AlarmCount(7))
	assert.Equal(t, AlarmCount(1), AlarmCount(0))
	assert.Equal(t, AlarmCount(7), AlarmCount(9))
}

func TestModeNames(t *testing.T) {
	assert.Equal(t, Mode(0xC0), ModeManualSingle)
	assert.Equal(t, Mode(0xCC), ModeAutoScan)
	assert.Equal(t, Mode(0xFC), ModeAutoBurstScanSleep)
	assert.Equal(t, "AUTO_SCAN_SLEEP", ModeAutoScanSleep.String())
	assert.Equal(t, "unknown", Mode(0x04).String())
	m, ok := ParseMode("AWAKE")
	assert.True(t, ok)
	assert.Equal(t, ModeAwake, m)
}
