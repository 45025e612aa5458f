package midikeys

// This file contains the errors returned while decoding an SMF file. Every
// one of them is terminal: once returned, the remaining stream can't be
// trusted.

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// The 4-byte chunk tag didn't match the expected "MThd" or "MTrk".
	ErrInvalidChunkTag = errors.New("invalid chunk tag")
	// The MThd chunk's length field wasn't 6.
	ErrInvalidHeaderLength = errors.New("invalid header chunk length")
	// The header specified a format other than 0 or 1.
	ErrUnsupportedFormat = errors.New("unsupported SMF format")
	// The division field used SMPTE frame-based timing, or specified 0 ticks
	// per quarter note.
	ErrUnsupportedTimingMode = errors.New("unsupported timing mode")
	// An end-of-track or set-tempo meta-event had the wrong length.
	ErrMalformedMetaEvent = errors.New("malformed meta-event")
	// A variable-length integer ran past 5 bytes or didn't fit in 32 bits.
	ErrVLQOverflow = errors.New("variable-length integer overflow")
	// A status byte whose event length isn't known, or a data byte with no
	// running status to apply it to.
	ErrParse = errors.New("unparseable MIDI event")
)

// Wraps a failed read or seek on the underlying byte source. A source that
// ends in the middle of a structure is reported with an Err of
// io.ErrUnexpectedEOF.
type IOError struct {
	// The byte offset at which the operation was attempted, or -1 if the
	// offset couldn't be determined.
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("I/O error: %s", e.Err)
	}
	return fmt.Sprintf("I/O error at offset %d: %s", e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
