package midikeys

import (
	"time"
)

// The tempo assumed until a set-tempo meta-event says otherwise: 120 BPM.
const DefaultMicrosecondsPerQuarter = 500000

// Converts delta-times in ticks to wall-clock durations. The tempo is global
// to a file and changes only going forward; durations that were already
// computed are never revised.
type TempoClock struct {
	microsPerQuarter uint32
	ppqn             uint16
}

// Returns a clock at the default tempo. ppqn must be nonzero.
func NewTempoClock(ppqn uint16) *TempoClock {
	return &TempoClock{
		microsPerQuarter: DefaultMicrosecondsPerQuarter,
		ppqn:             ppqn,
	}
}

// Sets the number of microseconds per quarter note, as given by a set-tempo
// meta-event.
func (t *TempoClock) SetTempo(microsPerQuarter uint32) {
	t.microsPerQuarter = microsPerQuarter
}

func (t *TempoClock) MicrosecondsPerQuarter() uint32 {
	return t.microsPerQuarter
}

func (t *TempoClock) PPQN() uint16 {
	return t.ppqn
}

// Returns the current tempo in quarter notes per minute.
func (t *TempoClock) BPM() float64 {
	if t.microsPerQuarter == 0 {
		return 0
	}
	return 60000000.0 / float64(t.microsPerQuarter)
}

// Returns ticks * microsPerQuarter / ppqn microseconds. The division is
// carried out in nanoseconds so sub-microsecond tick lengths aren't
// truncated.
func (t *TempoClock) Duration(ticks uint64) time.Duration {
	// A 24-bit tempo only overflows this past 2^40 ticks.
	micros := ticks * uint64(t.microsPerQuarter)
	ppqn := uint64(t.ppqn)
	whole := micros / ppqn
	remainder := micros % ppqn
	nanos := whole*uint64(time.Microsecond) +
		remainder*uint64(time.Microsecond)/ppqn
	return time.Duration(nanos)
}
