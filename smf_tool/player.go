package main

// This file contains the bubbletea model used by -play. It draws the
// keyboard and pedals in the terminal, waiting each event's delta before
// applying it.

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
	"github.com/yalue/midikeys"
)

var (
	whiteKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ddd"))
	blackKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	pressedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5a623"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode(
	"y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// Carries an event that was read but not yet waited for, along with the
// tempo in effect once it was read. The tempo is captured here since the
// sequencer is only touched from commands.
type pendingMsg struct {
	event midikeys.Event
	bpm   float64
}

// Sent once an event's delta has elapsed.
type playMsg pendingMsg

// Sent when the sequencer stops returning events. err is io.EOF at the end
// of the file.
type finishedMsg struct {
	err error
}

type playerModel struct {
	seq      *midikeys.Sequencer
	name     string
	speed    float64
	keyboard midikeys.Keyboard
	last     midikeys.Event
	bpm      float64
	count    int64
	elapsed  time.Duration
	err      error
	quitting bool
}

// The outcome of a playback, returned after the program exits.
type playResult struct {
	count   int64
	elapsed time.Duration
}

func readNext(s *midikeys.Sequencer) tea.Cmd {
	return func() tea.Msg {
		event, e := s.Next()
		if e != nil {
			return finishedMsg{err: e}
		}
		return pendingMsg{event: event, bpm: s.Tempo().BPM()}
	}
}

// Returns the real time to wait for a delta at the playback speed.
func (m playerModel) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) / m.speed)
}

func (m playerModel) Init() tea.Cmd {
	return readNext(m.seq)
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case pendingMsg:
		if msg.event.Delta == 0 {
			return m.Update(playMsg(msg))
		}
		return m, tea.Tick(m.scale(msg.event.Delta), func(time.Time) tea.Msg {
			return playMsg(msg)
		})

	case playMsg:
		m.elapsed += msg.event.Apply(&m.keyboard)
		m.last = msg.event
		m.bpm = msg.bpm
		m.count++
		return m, readNext(m.seq)

	case finishedMsg:
		if msg.err != io.EOF {
			m.err = msg.err
		}
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// Draws the 88 keys on one line, highlighting the pressed ones.
func renderKeys(k *midikeys.Keyboard) string {
	var sb strings.Builder
	for i := 0; i < midikeys.KeyCount; i++ {
		n := midikeys.MinNote + midikeys.Note(i)
		switch {
		case k.Velocity(n) != 0:
			sb.WriteString(pressedStyle.Render("█"))
		case n.IsBlack():
			sb.WriteString(blackKeyStyle.Render("▌"))
		default:
			sb.WriteString(whiteKeyStyle.Render("│"))
		}
	}
	return sb.String()
}

// Draws a pedal's value as a 16-character bar.
func renderPedal(p midikeys.Pedal, value uint8) string {
	filled := int(value) / 8
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", 16-filled)
	return fmt.Sprintf("%-12s [%s] %3d", p, bar, value)
}

func (m playerModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.name))
	sb.WriteString("\n\n")
	sb.WriteString(renderKeys(&m.keyboard))
	sb.WriteString("\n\n")
	sb.WriteString(renderPedal(midikeys.DamperPedal,
		m.keyboard.Pedal(midikeys.DamperPedal)))
	sb.WriteString("\n")
	sb.WriteString(renderPedal(midikeys.SoftPedal,
		m.keyboard.Pedal(midikeys.SoftPedal)))
	sb.WriteString("\n\n")
	if m.count > 0 {
		sb.WriteString(m.last.String())
		sb.WriteString("\n")
	}
	status := fmt.Sprintf("%s elapsed, %d events, %.1f BPM, %.2fx speed. "+
		"Press q to quit.", durafmt.Parse(m.elapsed).LimitFirstN(2).Format(
		shortUnits), m.count, m.bpm, m.speed)
	sb.WriteString(statusStyle.Render(status))
	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.err.Error()))
	}
	sb.WriteString("\n")
	return sb.String()
}

// Plays the remaining events in s until the file ends or the user quits.
func playFile(s *midikeys.Sequencer, name string, speed float64) (playResult,
	error) {
	m := playerModel{
		seq:   s,
		name:  name,
		speed: speed,
		bpm:   s.Tempo().BPM(),
	}
	final, e := tea.NewProgram(m).Run()
	if e != nil {
		return playResult{}, e
	}
	played := final.(playerModel)
	result := playResult{
		count:   played.count,
		elapsed: played.elapsed,
	}
	return result, played.err
}
