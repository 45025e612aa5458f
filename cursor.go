package midikeys

// This file contains the Cursor type, used for reading the big-endian
// integers and variable-length integers that make up an SMF file.

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// The longest variable-length integer we'll read before giving up.
const maxVLQBytes = 5

// Any source of bytes that can also seek: *os.File and *bytes.Reader both
// satisfy this.
type ByteSource interface {
	io.Reader
	io.Seeker
}

// Reads sequentially from a ByteSource. The only backwards movement a Cursor
// ever makes is restoring the offset after a PeekU8.
type Cursor struct {
	src ByteSource
	buf [4]byte
}

// Returns a new cursor starting at the source's current offset.
func NewCursor(src ByteSource) *Cursor {
	return &Cursor{
		src: src,
	}
}

// Returns the cursor's current byte offset in the source.
func (c *Cursor) Position() (int64, error) {
	offset, e := c.src.Seek(0, io.SeekCurrent)
	if e != nil {
		return 0, &IOError{Offset: -1, Err: e}
	}
	return offset, nil
}

// Wraps e in an IOError, filling in the current offset if we can get it.
func (c *Cursor) ioError(e error) error {
	if e == io.EOF {
		// Every read in an SMF file is part of a structure we've already
		// started, so running out of data is always a truncation.
		e = io.ErrUnexpectedEOF
	}
	offset, seekErr := c.src.Seek(0, io.SeekCurrent)
	if seekErr != nil {
		offset = -1
	}
	return errors.WithStack(&IOError{Offset: offset, Err: e})
}

// Fills dst completely or returns an IOError.
func (c *Cursor) readFull(dst []byte) error {
	_, e := io.ReadFull(c.src, dst)
	if e != nil {
		return c.ioError(e)
	}
	return nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	e := c.readFull(c.buf[:1])
	if e != nil {
		return 0, e
	}
	return c.buf[0], nil
}

func (c *Cursor) ReadU16() (uint16, error) {
	e := c.readFull(c.buf[:2])
	if e != nil {
		return 0, e
	}
	return binary.BigEndian.Uint16(c.buf[:2]), nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	e := c.readFull(c.buf[:4])
	if e != nil {
		return 0, e
	}
	return binary.BigEndian.Uint32(c.buf[:4]), nil
}

// Reads exactly n bytes into a newly allocated slice.
func (c *Cursor) ReadArray(n int) ([]byte, error) {
	toReturn := make([]byte, n)
	e := c.readFull(toReturn)
	if e != nil {
		return nil, e
	}
	return toReturn, nil
}

// Reads a MIDI-format variable-length integer: 7 bits per byte, most
// significant group first, with the top bit set on every byte but the last.
// Returns ErrVLQOverflow if the fifth byte still has its top bit set, or if
// the value doesn't fit in 32 bits.
func (c *Cursor) ReadVLQ() (uint32, error) {
	var toReturn uint64
	for i := 0; i < maxVLQBytes; i++ {
		b, e := c.ReadU8()
		if e != nil {
			return 0, e
		}
		toReturn = (toReturn << 7) | uint64(b&0x7f)
		if (b & 0x80) != 0 {
			continue
		}
		if toReturn > math.MaxUint32 {
			return 0, errors.Wrapf(ErrVLQOverflow, "value 0x%x exceeds 32 "+
				"bits", toReturn)
		}
		return uint32(toReturn), nil
	}
	return 0, errors.Wrapf(ErrVLQOverflow, "top bit still set on byte %d",
		maxVLQBytes)
}

// Reads the next byte without consuming it. The cursor is restored to the
// exact offset it had before the call, including when the read fails.
func (c *Cursor) PeekU8() (uint8, error) {
	saved, e := c.Position()
	if e != nil {
		return 0, e
	}
	b, readErr := c.ReadU8()
	_, e = c.src.Seek(saved, io.SeekStart)
	if e != nil {
		return 0, c.ioError(e)
	}
	if readErr != nil {
		return 0, readErr
	}
	return b, nil
}

// Skips n bytes. Skipping past the end of the source isn't itself an error;
// the next read will fail instead.
func (c *Cursor) SeekForward(n uint32) error {
	_, e := c.src.Seek(int64(n), io.SeekCurrent)
	if e != nil {
		return c.ioError(e)
	}
	return nil
}
