package midikeys

// This file contains code for reading the chunk structure of .mid SMF-format
// files: the MThd header and the MTrk chunk headers.

import (
	"fmt"

	"github.com/pkg/errors"
)

// This corresponds to the division field of the MThd chunk.
type TimeDivision uint16

// Returns the number of ticks per quarter note, or 0 if the time division
// doesn't specify a number of ticks per quarter note.
func (d TimeDivision) TicksPerQuarterNote() uint16 {
	if (d & 0x8000) != 0 {
		return 0
	}
	return uint16(d)
}

// Returns the SMPTE frames per second followed by the number of ticks per
// frame. Returns 0, 0 if the division is in ticks per quarter note instead.
// We can't decode files using SMPTE timing, but it's still worth reporting.
func (d TimeDivision) SMPTETimeCode() (uint8, uint8) {
	if (d & 0x8000) == 0 {
		return 0, 0
	}
	// The frames per second is a negative 2's complement 8-bit integer.
	fps := uint8(-int8(d >> 8))
	ticksPerFrame := uint8(d & 0xff)
	return fps, ticksPerFrame
}

func (d TimeDivision) String() string {
	if (d & 0x7fff) == 0 {
		return fmt.Sprintf("Invalid TimeDivision value: 0x%04x", uint16(d))
	}
	qnTicks := d.TicksPerQuarterNote()
	if qnTicks != 0 {
		return fmt.Sprintf("%d ticks per quarter note", qnTicks)
	}
	fps, ticksPerFrame := d.SMPTETimeCode()
	return fmt.Sprintf("%d frames per second, %d ticks per frame", fps,
		ticksPerFrame)
}

// The validated contents of an MThd chunk.
type Header struct {
	// Either 0 or 1. Format 2 files aren't supported.
	Format uint16
	// The number of MTrk chunks following the header.
	TrackCount uint16
	// Always in ticks per quarter note; SMPTE divisions are rejected.
	Division TimeDivision
}

func (h *Header) String() string {
	return fmt.Sprintf("Format %d, with %d track(s), %s", h.Format,
		h.TrackCount, h.Division.String())
}

// Reads a chunk's 4-byte tag and 32-bit length, returning the length.
// Returns ErrInvalidChunkTag if the tag isn't the expected one.
func ExpectChunk(c *Cursor, tag string) (uint32, error) {
	chunkType, e := c.ReadArray(4)
	if e != nil {
		return 0, errors.Wrap(e, "Failed reading chunk type")
	}
	if string(chunkType) != tag {
		return 0, errors.Wrapf(ErrInvalidChunkTag, "expected %q, got %q", tag,
			string(chunkType))
	}
	length, e := c.ReadU32()
	if e != nil {
		return 0, errors.Wrapf(e, "Failed reading %s chunk length", tag)
	}
	return length, nil
}

// Parses and validates the MThd chunk, assuming c is at the start of the
// file.
func readHeader(c *Cursor) (*Header, error) {
	length, e := ExpectChunk(c, "MThd")
	if e != nil {
		return nil, e
	}
	if length != 6 {
		return nil, errors.Wrapf(ErrInvalidHeaderLength, "got %d bytes",
			length)
	}
	var h Header
	h.Format, e = c.ReadU16()
	if e != nil {
		return nil, errors.Wrap(e, "Failed reading SMF format")
	}
	// Format 2 tracks are independent sequences, which can't be merged into a
	// single keyboard performance.
	if h.Format > 1 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %d", h.Format)
	}
	h.TrackCount, e = c.ReadU16()
	if e != nil {
		return nil, errors.Wrap(e, "Failed reading track count")
	}
	division, e := c.ReadU16()
	if e != nil {
		return nil, errors.Wrap(e, "Failed reading time division")
	}
	h.Division = TimeDivision(division)
	if h.Division.TicksPerQuarterNote() == 0 {
		return nil, errors.Wrapf(ErrUnsupportedTimingMode, "%s", h.Division)
	}
	return &h, nil
}
