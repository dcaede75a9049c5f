package ads7924

// MODECNTRL mode field bits (MODE5..MODE0 occupy bits 7..2).
const (
	modeBit5 = 1 << 7
	modeBit4 = 1 << 6
	modeBit3 = 1 << 5
	modeBit2 = 1 << 4
	modeBit1 = 1 << 3
	modeBit0 = 1 << 2

	// ModeMask selects the mode field; the low two bits select the channel.
	ModeMask = modeBit5 | modeBit4 | modeBit3 | modeBit2 | modeBit1 | modeBit0
)

// Mode is the MODECNTRL mode field.
type Mode uint8

const (
	ModeIdle               Mode = 0
	ModeAwake              Mode = modeBit5
	ModeManualSingle       Mode = modeBit5 | modeBit4
	ModeManualScan         Mode = modeBit5 | modeBit4 | modeBit1
	ModeAutoSingle         Mode = modeBit5 | modeBit4 | modeBit0
	ModeAutoScan           Mode = modeBit5 | modeBit4 | modeBit1 | modeBit0
	ModeAutoSingleSleep    Mode = modeBit5 | modeBit4 | modeBit3 | modeBit0
	ModeAutoScanSleep      Mode = modeBit5 | modeBit4 | modeBit3 | modeBit1 | modeBit0
	ModeAutoBurstScanSleep Mode = ModeMask
)

// ModeName pairs a mode with its display name.
type ModeName struct {
	Mode Mode
	Name string
}

// ModeNames lists every defined mode in register-value order of the datasheet.
var ModeNames = []ModeName{
	{ModeIdle, "IDLE"},
	{ModeAwake, "AWAKE"},
	{ModeManualSingle, "MANUAL_SINGLE"},
	{ModeManualScan, "MANUAL_SCAN"},
	{ModeAutoSingle, "AUTO_SINGLE"},
	{ModeAutoScan, "AUTO_SCAN"},
	{ModeAutoSingleSleep, "AUTO_SINGLE_SLEEP"},
	{ModeAutoScanSleep, "AUTO_SCAN_SLEEP"},
	{ModeAutoBurstScanSleep, "AUTO_BURST_SCAN_SLEEP"},
}

func (m Mode) String() string {
	for _, n := range ModeNames {
		if n.Mode == m {
			return n.Name
		}
	}
	return "unknown"
}

// ParseMode looks a mode up by display name.
func ParseMode(s string) (Mode, bool) {
	for _, n := range ModeNames {
		if n.Name == s {
			return n.Mode, true
		}
	}
	return 0, false
}
