package halcore

import (
	"tinygo.org/x/drivers"
)

// ---- Buses ----

// I2CBusFactory injects configured I²C instances by id.
// Uses the TinyGo drivers.I2C interface to remain compatible on MCU builds.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// ---- Alarm lines ----

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQLine is an edge-triggered callback source. The handler may run in
// interrupt or event-loop context and must not block.
type IRQLine interface {
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// LineFactory supplies IRQ lines by controller name and line offset.
type LineFactory interface {
	Line(chip string, offset int) (IRQLine, error)
}

// Resources is what a platform backend hands the driver.
type Resources struct {
	Buses I2CBusFactory
	Lines LineFactory
	// Close releases backend handles; may be nil.
	Close func() error
}

// Util
func EdgeToString(e Edge) string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// ParseEdge is the inverse of EdgeToString.
func ParseEdge(s string) (Edge, bool) {
	switch s {
	case "rising":
		return EdgeRising, true
	case "falling":
		return EdgeFalling, true
	case "both":
		return EdgeBoth, true
	case "none":
		return EdgeNone, true
	}
	return EdgeNone, false
}
