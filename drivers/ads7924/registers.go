package ads7924

// I2C addresses selected by the A0 pin.
const (
	AddressA0Low  = 0x48 // A0 tied to GND
	AddressA0High = 0x49 // A0 tied to DVDD
)

// Register map.
const (
	RegModeCntrl = 0x00
	RegIntCntrl  = 0x01
	RegData0U    = 0x02
	RegData0L    = 0x03
	RegData1U    = 0x04
	RegData1L    = 0x05
	RegData2U    = 0x06
	RegData2L    = 0x07
	RegData3U    = 0x08
	RegData3L    = 0x09
	RegULR0      = 0x0A
	RegLLR0      = 0x0B
	RegULR1      = 0x0C
	RegLLR1      = 0x0D
	RegULR2      = 0x0E
	RegLLR2      = 0x0F
	RegULR3      = 0x10
	RegLLR3      = 0x11
	RegIntConfig = 0x12
	RegSlpConfig = 0x13
	RegAcqConfig = 0x14
	RegPwrConfig = 0x15
	RegReset     = 0x16

	// RegisterSpan is one past the highest register address.
	RegisterSpan = RegReset + 1
)

const (
	// autoIncrement is OR'ed into the address byte for multi-byte transfers.
	autoIncrement = 0x80

	// resetCommand written to RegReset performs a software reset.
	resetCommand = 0xAA
)

// Channels per chip.
const NumChannels = 4

// INTCNTRL bits: upper nibble = alarm pending (cleared on read), lower nibble = alarm enable.
const (
	IntCtrlAlarmShift  = 4
	IntCtrlEnableMask  = 0x0F
	IntCtrlAlarmStMask = 0xF0
)

// INTCONFIG bits.
const (
	IntCfgAIMCNT2  = 1 << 7
	IntCfgAIMCNT1  = 1 << 6
	IntCfgAIMCNT0  = 1 << 5
	IntCfgINTCNFG1 = 1 << 4
	IntCfgINTCNFG0 = 1 << 3
	IntCfgBusyNInt = 1 << 2
	IntCfgINTPOL   = 1 << 1
	IntCfgINTTRIG  = 1 << 0

	intCfgAlarmCountShift = 5
	intCfgAlarmCountMask  = IntCfgAIMCNT2 | IntCfgAIMCNT1 | IntCfgAIMCNT0
)

// AlarmCount returns the AIMCNT bits for an alarm threshold count of
// 1..7 conversions. Values outside that range are clamped.
func AlarmCount(n int) byte {
	if n < 1 {
		n = 1
	}
	if n > 7 {
		n = 7
	}
	return byte(n<<intCfgAlarmCountShift) & intCfgAlarmCountMask
}

// SLPCONFIG bits.
const (
	SlpCfgCONVCTRL = 1 << 6
	SlpCfgSLPDIV4  = 1 << 5
	SlpCfgSLPMULT8 = 1 << 4
	SlpCfgSLPTIME2 = 1 << 2
	SlpCfgSLPTIME1 = 1 << 1
	SlpCfgSLPTIME0 = 1 << 0
)

// ACQCONFIG bits.
const (
	AcqCfgACQTIME4 = 1 << 4
	AcqCfgACQTIME3 = 1 << 3
	AcqCfgACQTIME2 = 1 << 2
	AcqCfgACQTIME1 = 1 << 1
	AcqCfgACQTIME0 = 1 << 0
)

// PWRCONFIG bits.
const (
	PwrCfgCALCNTL   = 1 << 7
	PwrCfgPWRCONPOL = 1 << 6
	PwrCfgPWRCONEN  = 1 << 5
	PwrCfgPWRUPTIM4 = 1 << 4
	PwrCfgPWRUPTIM3 = 1 << 3
	PwrCfgPWRUPTIM2 = 1 << 2
	PwrCfgPWRUPTIM1 = 1 << 1
	PwrCfgPWRUPTIM0 = 1 << 0
)

// expectedStatus is the RESET register content after power-up or reset,
// which doubles as a device ID keyed on the A0 strap.
func expectedStatus(addr uint16) (byte, bool) {
	switch addr {
	case AddressA0Low:
		return 0x18, true
	case AddressA0High:
		return 0x19, true
	}
	return 0, false
}

var registerNames = [RegisterSpan]string{
	RegModeCntrl: "MODECNTRL",
	RegIntCntrl:  "INTCNTRL",
	RegData0U:    "DATA0_U",
	RegData0L:    "DATA0_L",
	RegData1U:    "DATA1_U",
	RegData1L:    "DATA1_L",
	RegData2U:    "DATA2_U",
	RegData2L:    "DATA2_L",
	RegData3U:    "DATA3_U",
	RegData3L:    "DATA3_L",
	RegULR0:      "ULR0",
	RegLLR0:      "LLR0",
	RegULR1:      "ULR1",
	RegLLR1:      "LLR1",
	RegULR2:      "ULR2",
	RegLLR2:      "LLR2",
	RegULR3:      "ULR3",
	RegLLR3:      "LLR3",
	RegIntConfig: "INTCONFIG",
	RegSlpConfig: "SLPCONFIG",
	RegAcqConfig: "ACQCONFIG",
	RegPwrConfig: "PWRCONFIG",
	RegReset:     "RESET",
}

// RegisterName returns the datasheet name of reg, or "unknown".
func RegisterName(reg byte) string {
	if int(reg) < len(registerNames) {
		return registerNames[reg]
	}
	return "unknown"
}

func dataReg(ch int) byte  { return RegData0U + byte(2*ch) }
func upperReg(ch int) byte { return RegULR0 + byte(2*ch) }
func lowerReg(ch int) byte { return RegLLR0 + byte(2*ch) }
