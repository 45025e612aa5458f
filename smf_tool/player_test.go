package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/yalue/midikeys"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func openFixture(t *testing.T) *midikeys.Sequencer {
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, midi.ControlChange(0, 0x40, 127))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(96, midi.NoteOn(0, 64, 80))
	tr.Add(96, midi.NoteOff(0, 60))
	tr.Close(0)
	if e := sm.Add(tr); e != nil {
		t.Fatalf("Failed adding track: %s", e)
	}
	var buf bytes.Buffer
	if _, e := sm.WriteTo(&buf); e != nil {
		t.Fatalf("Failed writing fixture: %s", e)
	}
	s, e := midikeys.Open(bytes.NewReader(buf.Bytes()))
	if e != nil {
		t.Fatalf("Failed opening fixture: %s", e)
	}
	return s
}

// Drives the model's commands directly, without a terminal.
func TestPlayerModel(t *testing.T) {
	m := playerModel{
		seq:   openFixture(t),
		name:  "fixture",
		speed: 1000,
	}
	cmd := m.Init()
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			break
		}
		model, next := m.Update(msg)
		m = model.(playerModel)
		cmd = next
		if m.count == 3 {
			view := m.View()
			t.Logf("View after 3 events:\n%s", view)
			if !strings.Contains(view, "fixture") {
				t.Fatalf("The view is missing the file name")
			}
		}
	}
	if m.err != nil {
		t.Fatalf("Playback failed: %s", m.err)
	}
	if m.count != 4 {
		t.Fatalf("Played %d events, expected 4", m.count)
	}
	if m.elapsed != time.Second {
		t.Fatalf("Playback covered %s, expected 1s", m.elapsed)
	}
	if m.keyboard.Velocity(64) != 80 || m.keyboard.Velocity(60) != 0 {
		t.Fatalf("Bad final keyboard state: %s", m.keyboard.String())
	}
	if m.keyboard.Pedal(midikeys.DamperPedal) != 127 {
		t.Fatalf("The damper pedal wasn't held")
	}
	if m.View() != "" {
		t.Fatalf("Expected an empty view after quitting")
	}
}

func TestPlayerQuitKey(t *testing.T) {
	m := playerModel{seq: openFixture(t), speed: 1}
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !model.(playerModel).quitting {
		t.Fatalf("Pressing q didn't quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("Pressing q didn't return tea.Quit")
	}
}

func TestFormatDuration(t *testing.T) {
	if formatDuration(250*time.Millisecond) != "250ms" {
		t.Errorf("Got %s for 250ms", formatDuration(250*time.Millisecond))
	}
	s := formatDuration(3*time.Minute + 12*time.Second + 400*time.Millisecond)
	if s != "3 minutes 12 seconds" {
		t.Errorf("Got %s for 3m12.4s", s)
	}
}
