// This defines a command-line utility for viewing or playing back the
// keyboard events in standard MIDI files (SMF, usually with a ".mid"
// extension).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"
	"github.com/yalue/midikeys"
)

// Sets the logrus level from the -log_level flag, falling back to the
// LOG_LEVEL environment variable when the flag is left at its default.
func configureLogging(level string) error {
	if level == "" {
		level = strings.ToLower(os.Getenv("LOG_LEVEL"))
	}
	if level == "" {
		level = "info"
	}
	parsed, e := logrus.ParseLevel(level)
	if e != nil {
		return e
	}
	logrus.SetLevel(parsed)
	return nil
}

// Formats a duration to at most two units, e.g. "3 minutes 12 seconds".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	return durafmt.Parse(d).LimitFirstN(2).String()
}

// Reads every event from s, optionally printing each one. Returns the number
// of events and their total duration.
func dumpFile(s *midikeys.Sequencer, printEvents bool) (int64, time.Duration,
	error) {
	var count int64
	var total time.Duration
	for {
		event, e := s.Next()
		if e == io.EOF {
			return count, total, nil
		}
		if e != nil {
			return count, total, e
		}
		if printEvents {
			fmt.Printf("  %d. %s (%s)\n", count, &event, event.Message(0))
		}
		count++
		total += event.Delta
	}
}

func run() int {
	var filename, logLevel string
	var dumpEvents, play bool
	var speed float64
	flag.StringVar(&filename, "input_file", "", "The .mid file to open.")
	flag.BoolVar(&dumpEvents, "dump_events", false, "If set, print a list of "+
		"all keyboard events in the file to stdout.")
	flag.BoolVar(&play, "play", false, "If set, play the file back on a "+
		"keyboard drawn in the terminal.")
	flag.Float64Var(&speed, "speed", 1.0, "The playback speed multiplier "+
		"used with -play.")
	flag.StringVar(&logLevel, "log_level", "", "The logrus log level. "+
		"Defaults to $LOG_LEVEL, or info.")
	flag.Parse()
	if filename == "" {
		fmt.Printf("Invalid arguments. Run with -help for more information.\n")
		return 1
	}
	if speed <= 0 {
		fmt.Printf("The playback speed must be positive, got %f.\n", speed)
		return 1
	}
	e := configureLogging(logLevel)
	if e != nil {
		fmt.Printf("Invalid log level: %s\n", e)
		return 1
	}
	info, e := os.Stat(filename)
	if e != nil {
		fmt.Printf("Couldn't open %s: %s\n", filename, e)
		return 1
	}
	s, e := midikeys.OpenFile(filename,
		midikeys.WithLogger(logrus.WithField("file", filename)))
	if e != nil {
		fmt.Printf("Couldn't parse %s: %s\n", filename, e)
		return 1
	}
	defer s.Close()
	fmt.Printf("Parsed %s OK (%s). %s.\n", filename,
		humanize.Bytes(uint64(info.Size())), s.Header())

	if play {
		result, e := playFile(s, filename, speed)
		if e != nil {
			fmt.Printf("Playback of %s failed: %s\n", filename, e)
			return 1
		}
		fmt.Printf("Played %s events over %s.\n", humanize.Comma(result.count),
			formatDuration(result.elapsed))
		return 0
	}

	if dumpEvents {
		fmt.Printf("Keyboard events:\n")
	}
	count, total, e := dumpFile(s, dumpEvents)
	if e != nil {
		fmt.Printf("Failed reading %s after %d events: %s\n", filename,
			count, e)
		return 1
	}
	fmt.Printf("Contains %s keyboard events lasting %s. Final tempo: "+
		"%.2f BPM.\n", humanize.Comma(count), formatDuration(total),
		s.Tempo().BPM())
	return 0
}

func main() {
	os.Exit(run())
}
