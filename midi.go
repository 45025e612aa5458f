// This package decodes Standard MIDI Files into a stream of events for an
// 88-key keyboard: key presses and releases, and damper and soft pedal
// changes. Delta-times are converted to wall-clock durations using the tempo
// events in the file. The smf_tool directory contains a command-line
// interface that exposes most of the library's features.
package midikeys

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Holds a MIDI note value. The values corresponding to keys on a standard
// keyboard are 21 (A0) through 108 (C8).
type Note uint8

const (
	MinNote Note = 21
	MaxNote Note = 108
	// The number of keys on the keyboard.
	KeyCount = int(MaxNote-MinNote) + 1
)

// Returns true if the note is on an 88-key keyboard.
func (n Note) Valid() bool {
	return (n >= MinNote) && (n <= MaxNote)
}

// Returns the key's position on the keyboard, from 0 (A0) to 87 (C8). Only
// meaningful for valid notes.
func (n Note) Index() int {
	return int(n - MinNote)
}

func (n Note) String() string {
	if !n.Valid() {
		return fmt.Sprintf("MIDI note %d", uint8(n))
	}
	notes := [...]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F",
		"F#", "G", "G#"}
	index := (int(n) - 21) % 12
	octave := (int(n) - 12) / 12
	return fmt.Sprintf("%s%d", notes[index], octave)
}

// The piano pedals we track. The values index Keyboard.Pedals.
type Pedal uint8

const (
	SoftPedal Pedal = iota
	DamperPedal
)

func (p Pedal) String() string {
	switch p {
	case SoftPedal:
		return "soft pedal"
	case DamperPedal:
		return "damper pedal"
	}
	return fmt.Sprintf("unknown pedal %d", uint8(p))
}

// The kinds of event a Sequencer can return.
type EventKind uint8

const (
	KeyPressed EventKind = iota
	KeyReleased
	DamperPedalChange
	SoftPedalChange
)

func (k EventKind) String() string {
	switch k {
	case KeyPressed:
		return "key pressed"
	case KeyReleased:
		return "key released"
	case DamperPedalChange:
		return "damper pedal"
	case SoftPedalChange:
		return "soft pedal"
	}
	return fmt.Sprintf("unknown event kind %d", uint8(k))
}

// A single keyboard event.
type Event struct {
	// The time since the previous event returned by the Sequencer. 0 means
	// the two happen simultaneously, e.g. the notes of a chord.
	Delta time.Duration
	Kind  EventKind
	// The key affected. Only set for KeyPressed and KeyReleased, and always
	// in the range [MinNote, MaxNote].
	Note Note
	// The velocity (1-127) for KeyPressed, 0 for KeyReleased, or the
	// controller value for pedal events.
	Value uint8
}

func (e *Event) String() string {
	var what string
	switch e.Kind {
	case KeyPressed:
		what = fmt.Sprintf("%s on, velocity = %d", e.Note, e.Value)
	case KeyReleased:
		what = fmt.Sprintf("%s off", e.Note)
	case DamperPedalChange, SoftPedalChange:
		what = fmt.Sprintf("%s = %d", e.Kind, e.Value)
	default:
		what = e.Kind.String()
	}
	return fmt.Sprintf("+%s: %s", e.Delta, what)
}

// Classifies a decoded rawEvent.
type rawClass uint8

const (
	// A channel event relevant to the keyboard; rawEvent.event is set.
	rawKeyboard rawClass = iota
	// A set-tempo meta-event; rawEvent.tempo is set.
	rawTempo
	rawEndOfTrack
	// Anything we read to completion but don't care about.
	rawUnsupported
)

// One event as it appears in a track, before tempo conversion.
type rawEvent struct {
	// The delta-time in ticks.
	delta uint32
	class rawClass
	// Delta is left at 0; the Sequencer fills it in.
	event Event
	// Microseconds per quarter note.
	tempo uint32
}

// Reads the two data bytes of a channel event, neither of which may have the
// top bit set.
func readDataBytes2(c *Cursor, status byte) (uint8, uint8, error) {
	a, e := readDataByte(c, status)
	if e != nil {
		return 0, 0, e
	}
	b, e := readDataByte(c, status)
	if e != nil {
		return 0, 0, e
	}
	return a, b, nil
}

func readDataByte(c *Cursor, status byte) (uint8, error) {
	b, e := c.ReadU8()
	if e != nil {
		return 0, errors.Wrapf(e, "Failed reading data for status 0x%02x",
			status)
	}
	if b > 0x7f {
		return 0, errors.Wrapf(ErrParse, "data byte 0x%02x for status 0x%02x",
			b, status)
	}
	return b, nil
}

// Decodes a note-off event. The velocity is read but ignored.
func decodeNoteOff(c *Cursor, status byte) (rawEvent, error) {
	n, _, e := readDataBytes2(c, status)
	if e != nil {
		return rawEvent{}, e
	}
	if !Note(n).Valid() {
		return rawEvent{class: rawUnsupported}, nil
	}
	return rawEvent{
		class: rawKeyboard,
		event: Event{Kind: KeyReleased, Note: Note(n)},
	}, nil
}

// Decodes a note-on event. A velocity of 0 is a note-off, by MIDI convention.
func decodeNoteOn(c *Cursor, status byte) (rawEvent, error) {
	n, v, e := readDataBytes2(c, status)
	if e != nil {
		return rawEvent{}, e
	}
	if !Note(n).Valid() {
		return rawEvent{class: rawUnsupported}, nil
	}
	if v == 0 {
		return rawEvent{
			class: rawKeyboard,
			event: Event{Kind: KeyReleased, Note: Note(n)},
		}, nil
	}
	return rawEvent{
		class: rawKeyboard,
		event: Event{Kind: KeyPressed, Note: Note(n), Value: v},
	}, nil
}

// Decodes a control-change event. Only the damper (0x40) and soft (0x43)
// pedal controllers are kept.
func decodeControlChange(c *Cursor, status byte) (rawEvent, error) {
	controller, value, e := readDataBytes2(c, status)
	if e != nil {
		return rawEvent{}, e
	}
	switch controller {
	case damperController:
		return rawEvent{
			class: rawKeyboard,
			event: Event{Kind: DamperPedalChange, Value: value},
		}, nil
	case softController:
		return rawEvent{
			class: rawKeyboard,
			event: Event{Kind: SoftPedalChange, Value: value},
		}, nil
	}
	return rawEvent{class: rawUnsupported}, nil
}

// Decodes a meta-event, assuming the 0xff byte has already been consumed.
// Only end-of-track and set-tempo are kept; everything else is skipped over.
func decodeMetaEvent(c *Cursor) (rawEvent, error) {
	eventType, e := c.ReadU8()
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed reading meta-event type")
	}
	length, e := c.ReadVLQ()
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed reading meta-event length")
	}
	switch eventType {
	case 0x2f:
		if length != 0 {
			return rawEvent{}, errors.Wrapf(ErrMalformedMetaEvent,
				"end-of-track length %d", length)
		}
		return rawEvent{class: rawEndOfTrack}, nil
	case 0x51:
		if length != 3 {
			return rawEvent{}, errors.Wrapf(ErrMalformedMetaEvent,
				"set tempo length %d", length)
		}
		data, e := c.ReadArray(3)
		if e != nil {
			return rawEvent{}, errors.Wrap(e, "Failed reading tempo")
		}
		tempo := uint32(data[2])
		tempo |= uint32(data[1]) << 8
		tempo |= uint32(data[0]) << 16
		return rawEvent{class: rawTempo, tempo: tempo}, nil
	}
	e = c.SeekForward(length)
	if e != nil {
		return rawEvent{}, errors.Wrapf(e, "Failed skipping meta-event 0x%02x",
			eventType)
	}
	return rawEvent{class: rawUnsupported}, nil
}

// Skips a sysex event, assuming the leading 0xf0 or 0xf7 has been consumed.
func skipSystemExclusive(c *Cursor) (rawEvent, error) {
	length, e := c.ReadVLQ()
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed reading SysEx length")
	}
	e = c.SeekForward(length)
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed skipping SysEx data")
	}
	return rawEvent{class: rawUnsupported}, nil
}

// Decodes exactly one event at the cursor, consuming exactly the bytes that
// belong to it even if the event is discarded. runningStatus holds the last
// channel status byte seen in the current track, or 0 if there is none, and
// is updated as needed.
func decodeEvent(c *Cursor, runningStatus *byte) (rawEvent, error) {
	delta, e := c.ReadVLQ()
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed reading time delta")
	}
	first, e := c.PeekU8()
	if e != nil {
		return rawEvent{}, errors.Wrap(e, "Failed reading start of event")
	}
	status := *runningStatus
	if (first & 0x80) != 0 {
		// A new status byte. Otherwise, the byte is the first data byte and
		// stays unconsumed.
		status = first
		_, e = c.ReadU8()
		if e != nil {
			return rawEvent{}, e
		}
		if status < 0xf0 {
			*runningStatus = status
		} else {
			// Meta and sysex events cancel running status.
			*runningStatus = 0
		}
	}

	var toReturn rawEvent
	// The channel number is discarded: every channel plays the same keyboard.
	switch status & 0xf0 {
	case 0x80:
		toReturn, e = decodeNoteOff(c, status)
	case 0x90:
		toReturn, e = decodeNoteOn(c, status)
	case 0xa0, 0xe0:
		// Aftertouch and pitch bend.
		_, _, e = readDataBytes2(c, status)
		toReturn.class = rawUnsupported
	case 0xb0:
		toReturn, e = decodeControlChange(c, status)
	case 0xc0, 0xd0:
		// Program change and channel pressure.
		_, e = readDataByte(c, status)
		toReturn.class = rawUnsupported
	case 0xf0:
		switch status {
		case 0xff:
			toReturn, e = decodeMetaEvent(c)
		case 0xf0, 0xf7:
			toReturn, e = skipSystemExclusive(c)
		default:
			// We don't know how long any other system message would be, so
			// there's no way to keep reading the track.
			e = errors.Wrapf(ErrParse, "status byte 0x%02x", status)
		}
	default:
		e = errors.Wrapf(ErrParse, "data byte 0x%02x with no running status",
			first)
	}
	if e != nil {
		return rawEvent{}, e
	}
	toReturn.delta = delta
	return toReturn, nil
}
