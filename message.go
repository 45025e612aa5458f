package midikeys

import (
	"gitlab.com/gomidi/midi/v2"
)

// The control-change controller numbers for the pedals we track.
const (
	damperController = 0x40
	softController   = 0x43
)

// Converts the event back into a MIDI channel message on the given channel,
// suitable for sending to a gomidi output port or adding to an smf.Track.
// The delta isn't part of the message.
func (e *Event) Message(channel uint8) midi.Message {
	switch e.Kind {
	case KeyPressed:
		return midi.NoteOn(channel, uint8(e.Note), e.Value)
	case KeyReleased:
		return midi.NoteOff(channel, uint8(e.Note))
	case DamperPedalChange:
		return midi.ControlChange(channel, damperController, e.Value)
	case SoftPedalChange:
		return midi.ControlChange(channel, softController, e.Value)
	}
	return nil
}
