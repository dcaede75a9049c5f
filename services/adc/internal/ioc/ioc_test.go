package ioc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinuxLayout(t *testing.T) {
	// Values as produced by <asm-generic/ioctl.h>.
	assert.Equal(t, Code(0x00006100), IO('a', 0))
	assert.Equal(t, Code(0x40016101), IOW('a', 1, 1))
	assert.Equal(t, Code(0x80016102), IOR('a', 2, 1))
	assert.Equal(t, Code(0x40026105), IOW('a', 5, 2))
	assert.Equal(t, Code(0xC0046107), IOWR('a', 7, 4))
}

func TestDecode(t *testing.T) {
	c := IOW('a', 33, 1)
	assert.Equal(t, Write, c.Dir())
	assert.Equal(t, byte('a'), c.Type())
	assert.Equal(t, byte(33), c.Nr())
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, "_IOW('a', 33, 1)", c.String())
	assert.Equal(t, "_IO('a', 30)", IO('a', 30).String())
}

func TestSizeOverflowPanics(t *testing.T) {
	assert.Panics(t, func() { New(Read, 'a', 0, MaxSize+1) })
}
