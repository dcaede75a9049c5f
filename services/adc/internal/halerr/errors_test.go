package halerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsAreStableStrings(t *testing.T) {
	cases := map[string]error{
		"unknown_bus":     ErrUnknownBus,
		"unknown_line":    ErrUnknownLine,
		"unknown_backend": ErrUnknownBackend,
		"invalid_edge":    ErrInvalidEdge,
		"bus_unbound":     ErrBusUnbound,
		"closed":          ErrClosed,
	}
	for want, e := range cases {
		assert.EqualError(t, e, want)
	}
}
