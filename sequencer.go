package midikeys

// This file contains the Sequencer, which reads an SMF file one event at a
// time, merging its tracks one after the other.

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type sequencerState uint8

const (
	awaitingHeader sequencerState = iota
	awaitingTrack
	inTrack
	done
)

// Reads keyboard events from an SMF file. Tracks are played strictly one
// after another: track 2 starts only once track 1's end-of-track event has
// been read. This is only a faithful merge for files with one meaningful
// track, such as recorded piano performances.
//
// A Sequencer isn't safe for concurrent use.
type Sequencer struct {
	cursor *Cursor
	// Set if the Sequencer opened the source itself, and must close it.
	closer io.Closer
	header *Header
	clock  *TempoClock
	log    logrus.FieldLogger

	state           sequencerState
	tracksRemaining uint16
	// The index of the current track, for log messages.
	track         int
	runningStatus byte
	// Time accumulated from events we read but didn't return. Ticks are
	// converted to a duration whenever the tempo changes.
	pendingTicks    uint64
	pendingDuration time.Duration
	// The number of events dropped in the current track.
	absorbed int
	// Once set, every call to Next returns it.
	err error
}

// Configures a Sequencer created by Open or OpenFile.
type Option func(*Sequencer)

// Sets the logger used for debug messages. Defaults to the logrus standard
// logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sequencer) {
		s.log = l
	}
}

// Parses the header of the SMF file in src and prepares to read its first
// track. src must be positioned at the start of the file.
func Open(src ByteSource, options ...Option) (*Sequencer, error) {
	s := &Sequencer{
		cursor: NewCursor(src),
		log:    logrus.StandardLogger(),
		state:  awaitingHeader,
	}
	for _, o := range options {
		o(s)
	}
	header, e := readHeader(s.cursor)
	if e != nil {
		return nil, errors.Wrap(e, "Failed parsing SMF header")
	}
	s.header = header
	s.clock = NewTempoClock(header.Division.TicksPerQuarterNote())
	s.tracksRemaining = header.TrackCount
	s.state = awaitingTrack
	s.log.WithFields(logrus.Fields{
		"format":   header.Format,
		"tracks":   header.TrackCount,
		"division": header.Division.TicksPerQuarterNote(),
	}).Debug("Parsed SMF header")
	if s.tracksRemaining == 0 {
		s.state = done
		return s, nil
	}
	e = s.openTrack()
	if e != nil {
		return nil, e
	}
	return s, nil
}

// Opens the named SMF file. The returned Sequencer must be closed.
func OpenFile(name string, options ...Option) (*Sequencer, error) {
	f, e := os.Open(name)
	if e != nil {
		return nil, errors.WithStack(&IOError{Offset: -1, Err: e})
	}
	s, e := Open(f, options...)
	if e != nil {
		f.Close()
		return nil, e
	}
	s.closer = f
	return s, nil
}

// Closes the underlying file if the Sequencer was created by OpenFile. Does
// nothing otherwise.
func (s *Sequencer) Close() error {
	s.state = done
	if s.closer == nil {
		return nil
	}
	e := s.closer.Close()
	s.closer = nil
	return e
}

func (s *Sequencer) Header() *Header {
	return s.header
}

// Returns the tempo clock. Its tempo reflects every set-tempo event read so
// far.
func (s *Sequencer) Tempo() *TempoClock {
	return s.clock
}

// Reads the next MTrk chunk header and resets the per-track state.
func (s *Sequencer) openTrack() error {
	track := int(s.header.TrackCount - s.tracksRemaining)
	length, e := ExpectChunk(s.cursor, "MTrk")
	if e != nil {
		return errors.Wrapf(e, "Failed opening SMF track %d", track)
	}
	s.track = track
	s.runningStatus = 0
	s.absorbed = 0
	s.state = inTrack
	s.log.WithFields(logrus.Fields{
		"track":  track,
		"length": length,
	}).Debug("Opened track")
	return nil
}

// Converts the pending ticks at the current tempo. Must be called before the
// tempo changes.
func (s *Sequencer) flushTicks() {
	s.pendingDuration += s.clock.Duration(s.pendingTicks)
	s.pendingTicks = 0
}

// Returns the next keyboard event. Returns io.EOF after the last track's
// end-of-track event. Any other error is terminal and is returned again by
// every later call; events returned before it remain valid.
func (s *Sequencer) Next() (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	if s.state == done {
		return Event{}, io.EOF
	}
	event, e := s.next()
	if e != nil {
		s.err = e
		if e != io.EOF {
			s.log.WithError(e).WithField("track", s.track).Debug(
				"Failed reading event")
		}
		return Event{}, e
	}
	return event, nil
}

func (s *Sequencer) next() (Event, error) {
	for {
		raw, e := decodeEvent(s.cursor, &s.runningStatus)
		if e != nil {
			return Event{}, errors.Wrapf(e, "Failed reading event in track %d",
				s.track)
		}
		s.pendingTicks += uint64(raw.delta)
		switch raw.class {
		case rawKeyboard:
			s.flushTicks()
			event := raw.event
			event.Delta = s.pendingDuration
			s.pendingDuration = 0
			return event, nil
		case rawTempo:
			s.flushTicks()
			s.clock.SetTempo(raw.tempo)
			s.log.WithFields(logrus.Fields{
				"track":            s.track,
				"microsPerQuarter": raw.tempo,
				"beatsPerMinute":   s.clock.BPM(),
			}).Debug("Tempo change")
		case rawEndOfTrack:
			s.log.WithFields(logrus.Fields{
				"track":    s.track,
				"absorbed": s.absorbed,
			}).Debug("End of track")
			s.tracksRemaining--
			if s.tracksRemaining == 0 {
				s.state = done
				return Event{}, io.EOF
			}
			s.state = awaitingTrack
			e = s.openTrack()
			if e != nil {
				return Event{}, e
			}
		case rawUnsupported:
			s.absorbed++
		}
	}
}
