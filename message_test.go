package midikeys

import (
	"bytes"
	"io"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Writes sm to a buffer using gomidi's encoder, so these tests don't depend
// on our hand-built byte arrays.
func encodeSMF(t *testing.T, sm *smf.SMF) []byte {
	var buf bytes.Buffer
	_, e := sm.WriteTo(&buf)
	if e != nil {
		t.Fatalf("Failed writing SMF: %s", e)
	}
	return buf.Bytes()
}

// A short two-track piano performance at 100 BPM.
func pianoFixture(t *testing.T) []byte {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(480)
	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(100))
	conductor.Close(0)
	var piano smf.Track
	piano.Add(0, midi.ProgramChange(0, 0))
	piano.Add(0, midi.ControlChange(0, damperController, 127))
	piano.Add(0, midi.NoteOn(0, 60, 100))
	piano.Add(0, midi.NoteOn(0, 64, 90))
	// Outside the keyboard, so absorbed.
	piano.Add(240, midi.NoteOn(0, 10, 50))
	piano.Add(240, midi.NoteOff(0, 60))
	piano.Add(0, midi.Pitchbend(0, 100))
	piano.Add(480, midi.NoteOff(0, 64))
	piano.Add(0, midi.ControlChange(0, softController, 64))
	piano.Add(0, midi.ControlChange(0, damperController, 0))
	piano.Close(0)
	if e := sm.Add(conductor); e != nil {
		t.Fatalf("Failed adding conductor track: %s", e)
	}
	if e := sm.Add(piano); e != nil {
		t.Fatalf("Failed adding piano track: %s", e)
	}
	return encodeSMF(t, sm)
}

func TestGomidiFixture(t *testing.T) {
	data := pianoFixture(t)
	s, e := Open(bytes.NewReader(data))
	if e != nil {
		t.Fatalf("Failed opening gomidi-written file: %s", e)
	}
	if s.Header().TrackCount != 2 {
		t.Fatalf("Expected 2 tracks, got %d", s.Header().TrackCount)
	}
	events := readAll(t, s)
	// 600000 us per quarter: 240 ticks = 300ms, 480 ticks = 600ms.
	expected := []Event{
		{Delta: 0, Kind: DamperPedalChange, Value: 127},
		{Delta: 0, Kind: KeyPressed, Note: 60, Value: 100},
		{Delta: 0, Kind: KeyPressed, Note: 64, Value: 90},
		{Delta: 600 * time.Millisecond, Kind: KeyReleased, Note: 60},
		{Delta: 600 * time.Millisecond, Kind: KeyReleased, Note: 64},
		{Delta: 0, Kind: SoftPedalChange, Value: 64},
		{Delta: 0, Kind: DamperPedalChange, Value: 0},
	}
	compareEvents(t, events, expected)
	if s.Tempo().MicrosecondsPerQuarter() != 600000 {
		t.Fatalf("Expected the tempo to be 600000, got %d",
			s.Tempo().MicrosecondsPerQuarter())
	}
}

// Compares our key presses against gomidi's own reader.
func TestMatchesGomidiReader(t *testing.T) {
	data := pianoFixture(t)
	reference, e := smf.ReadFrom(bytes.NewReader(data))
	if e != nil {
		t.Fatalf("gomidi failed reading its own file: %s", e)
	}
	var expectedPresses []Note
	for _, track := range reference.Tracks {
		for _, ev := range track {
			var ch, key, vel uint8
			if !ev.Message.GetNoteStart(&ch, &key, &vel) {
				continue
			}
			if Note(key).Valid() {
				expectedPresses = append(expectedPresses, Note(key))
			}
		}
	}
	s, e := Open(bytes.NewReader(data))
	if e != nil {
		t.Fatalf("Failed opening file: %s", e)
	}
	var presses []Note
	for _, ev := range readAll(t, s) {
		if ev.Kind == KeyPressed {
			presses = append(presses, ev.Note)
		}
	}
	if len(presses) != len(expectedPresses) {
		t.Fatalf("Got presses %v, gomidi found %v", presses, expectedPresses)
	}
	for i := range presses {
		if presses[i] != expectedPresses[i] {
			t.Fatalf("Press %d: got %s, gomidi found %s", i, presses[i],
				expectedPresses[i])
		}
	}
}

func TestEventMessage(t *testing.T) {
	tests := []struct {
		event    Event
		expected midi.Message
	}{
		{Event{Kind: KeyPressed, Note: 60, Value: 100}, midi.NoteOn(3, 60, 100)},
		{Event{Kind: KeyReleased, Note: 60}, midi.NoteOff(3, 60)},
		{Event{Kind: DamperPedalChange, Value: 127},
			midi.ControlChange(3, 0x40, 127)},
		{Event{Kind: SoftPedalChange, Value: 1}, midi.ControlChange(3, 0x43, 1)},
	}
	for _, test := range tests {
		m := test.event.Message(3)
		if !bytes.Equal(m, test.expected) {
			t.Errorf("%s: got message %s, expected %s", &test.event, m,
				test.expected)
		}
	}
	bad := Event{Kind: EventKind(99)}
	if bad.Message(0) != nil {
		t.Errorf("Got a message for an unknown event kind")
	}
}

// Decoding a file, converting every event back to a message, and writing
// those with gomidi must reproduce the same events.
func TestMessageRoundTrip(t *testing.T) {
	s, e := Open(bytes.NewReader(pianoFixture(t)))
	if e != nil {
		t.Fatalf("Failed opening file: %s", e)
	}
	original := readAll(t, s)
	tempo := s.Tempo()

	sm := smf.NewSMF1()
	sm.TimeFormat = smf.MetricTicks(tempo.PPQN())
	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(tempo.BPM()))
	conductor.Close(0)
	var track smf.Track
	tickLength := tempo.Duration(1)
	for i := range original {
		ticks := uint32((original[i].Delta + tickLength/2) / tickLength)
		track.Add(ticks, original[i].Message(0))
	}
	track.Close(0)
	if e = sm.Add(conductor); e != nil {
		t.Fatalf("Failed adding track: %s", e)
	}
	if e = sm.Add(track); e != nil {
		t.Fatalf("Failed adding track: %s", e)
	}
	s, e = Open(bytes.NewReader(encodeSMF(t, sm)))
	if e != nil {
		t.Fatalf("Failed re-opening file: %s", e)
	}
	compareEvents(t, readAll(t, s), original)
	_, e = s.Next()
	if e != io.EOF {
		t.Fatalf("Expected io.EOF after the last event, got %v", e)
	}
}
