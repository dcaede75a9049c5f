// Package ioc encodes request codes in the Linux generic _IOC layout:
// bits 0-7 number, 8-15 type, 16-29 argument size, 30-31 direction.
package ioc

import "fmt"

// Code is one request code.
type Code uint32

const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits

	// MaxSize is the largest encodable argument size.
	MaxSize = 1<<sizeBits - 1
)

// Direction is seen from the caller: Write passes an argument in,
// Read takes a result out.
type Direction uint8

const (
	None  Direction = 0
	Write Direction = 1
	Read  Direction = 2
)

// New encodes a code. It panics if size does not fit.
func New(dir Direction, typ, nr byte, size int) Code {
	if size < 0 || size > MaxSize {
		panic(fmt.Sprintf("ioc: size %d out of range", size))
	}
	return Code(uint32(dir)<<dirShift | uint32(size)<<sizeShift | uint32(typ)<<typeShift | uint32(nr)<<nrShift)
}

func IO(typ, nr byte) Code             { return New(None, typ, nr, 0) }
func IOR(typ, nr byte, size int) Code  { return New(Read, typ, nr, size) }
func IOW(typ, nr byte, size int) Code  { return New(Write, typ, nr, size) }
func IOWR(typ, nr byte, size int) Code { return New(Read|Write, typ, nr, size) }

func (c Code) Dir() Direction { return Direction(c >> dirShift) }
func (c Code) Type() byte     { return byte(c >> typeShift) }
func (c Code) Nr() byte       { return byte(c >> nrShift) }
func (c Code) Size() int      { return int(c>>sizeShift) & MaxSize }

func (c Code) String() string {
	switch c.Dir() {
	case None:
		return fmt.Sprintf("_IO(%q, %d)", c.Type(), c.Nr())
	case Read:
		return fmt.Sprintf("_IOR(%q, %d, %d)", c.Type(), c.Nr(), c.Size())
	case Write:
		return fmt.Sprintf("_IOW(%q, %d, %d)", c.Type(), c.Nr(), c.Size())
	default:
		return fmt.Sprintf("_IOWR(%q, %d, %d)", c.Type(), c.Nr(), c.Size())
	}
}
