package midikeys

import (
	"fmt"
	"strings"
	"time"
)

// The state of an 88-key keyboard. The zero value has every key released and
// both pedals up.
type Keyboard struct {
	// The velocity of each key, indexed by Note.Index(). 0 means released.
	Keys [KeyCount]uint8
	// The pedal values, indexed by Pedal.
	Pedals [2]uint8
}

// Updates the keyboard with the event and returns the event's delta, so a
// player can wait that long before applying the next one.
func (e *Event) Apply(k *Keyboard) time.Duration {
	switch e.Kind {
	case KeyPressed, KeyReleased:
		k.Keys[e.Note.Index()] = e.Value
	case DamperPedalChange:
		k.Pedals[DamperPedal] = e.Value
	case SoftPedalChange:
		k.Pedals[SoftPedal] = e.Value
	}
	return e.Delta
}

// Returns the velocity of the key, or 0 if it's released or not on the
// keyboard.
func (k *Keyboard) Velocity(n Note) uint8 {
	if !n.Valid() {
		return 0
	}
	return k.Keys[n.Index()]
}

func (k *Keyboard) Pedal(p Pedal) uint8 {
	if int(p) >= len(k.Pedals) {
		return 0
	}
	return k.Pedals[p]
}

// Returns the notes currently held down, lowest first.
func (k *Keyboard) Pressed() []Note {
	var toReturn []Note
	for i, v := range k.Keys {
		if v != 0 {
			toReturn = append(toReturn, MinNote+Note(i))
		}
	}
	return toReturn
}

// Releases every key and pedal.
func (k *Keyboard) Reset() {
	*k = Keyboard{}
}

// Returns true if the key is a black key (a sharp).
func (n Note) IsBlack() bool {
	switch n % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// Draws the keyboard on one line: '|' for a released white key, ':' for a
// released black key and '#' for a pressed key, followed by the pedal values.
func (k *Keyboard) String() string {
	var sb strings.Builder
	sb.Grow(KeyCount + 32)
	for i, v := range k.Keys {
		switch {
		case v != 0:
			sb.WriteByte('#')
		case (MinNote + Note(i)).IsBlack():
			sb.WriteByte(':')
		default:
			sb.WriteByte('|')
		}
	}
	fmt.Fprintf(&sb, " soft=%d damper=%d", k.Pedals[SoftPedal],
		k.Pedals[DamperPedal])
	return sb.String()
}
