// This defines a command-line utility for gathering statistics about which
// keys and pedals are used by a directory of MIDI files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
	"github.com/sirupsen/logrus"
	"github.com/yalue/midikeys"
)

// Keeps track of our accumulated event counts for each key and pedal.
type keyStats struct {
	// The number of times each key was pressed, indexed by Note.Index().
	pressCounts [midikeys.KeyCount]uint64
	// The number of change events for each pedal, indexed by Pedal.
	pedalCounts [2]uint64
	// The summed length of every file.
	totalTime time.Duration
	files     uint64
}

// Adds the counts from another set of stats to this one.
func (s *keyStats) merge(other *keyStats) {
	for i := range s.pressCounts {
		s.pressCounts[i] += other.pressCounts[i]
	}
	for i := range s.pedalCounts {
		s.pedalCounts[i] += other.pedalCounts[i]
	}
	s.totalTime += other.totalTime
	s.files += other.files
}

func (s *keyStats) totalPresses() uint64 {
	var toReturn uint64
	for _, c := range s.pressCounts {
		toReturn += c
	}
	return toReturn
}

// Dumps the total counts for each key and pedal to w.
func (s *keyStats) printInfo(w io.Writer) {
	fmt.Fprintf(w, "Scanned %s files, %s of music, %s key presses.\n",
		humanize.Comma(int64(s.files)),
		durafmt.Parse(s.totalTime).LimitFirstN(2).String(),
		humanize.Comma(int64(s.totalPresses())))
	for i, c := range s.pressCounts {
		n := midikeys.MinNote + midikeys.Note(i)
		fmt.Fprintf(w, "Key %s: %s presses.\n", n, humanize.Comma(int64(c)))
	}
	fmt.Fprintf(w, "Damper pedal: %s events.\n",
		humanize.Comma(int64(s.pedalCounts[midikeys.DamperPedal])))
	fmt.Fprintf(w, "Soft pedal: %s events.\n",
		humanize.Comma(int64(s.pedalCounts[midikeys.SoftPedal])))
}

// Reads every event in the named MIDI file, returning its stats. Nothing is
// returned for a file that fails partway through.
func scanFile(name string) (*keyStats, error) {
	s, e := midikeys.OpenFile(name,
		midikeys.WithLogger(logrus.WithField("file", name)))
	if e != nil {
		return nil, errors.Wrapf(e, "Failed opening %s", name)
	}
	defer s.Close()
	toReturn := &keyStats{files: 1}
	for {
		event, e := s.Next()
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, errors.Wrapf(e, "Failed reading %s", name)
		}
		toReturn.totalTime += event.Delta
		switch event.Kind {
		case midikeys.KeyPressed:
			toReturn.pressCounts[event.Note.Index()]++
		case midikeys.DamperPedalChange:
			toReturn.pedalCounts[midikeys.DamperPedal]++
		case midikeys.SoftPedalChange:
			toReturn.pedalCounts[midikeys.SoftPedal]++
		}
	}
	return toReturn, nil
}

// Scans the files using at most the given number of goroutines. Files that
// fail are logged and left out of the totals. Returns the combined stats and
// the number of failed files.
func scanFiles(filenames []string, workers int) (*keyStats, int) {
	var lock sync.Mutex
	stats := &keyStats{}
	failed := 0
	wg := sizedwaitgroup.New(workers)
	for _, name := range filenames {
		wg.Add()
		go func(name string) {
			defer wg.Done()
			logrus.WithField("file", name).Debug("Scanning file")
			fileStats, e := scanFile(name)
			lock.Lock()
			defer lock.Unlock()
			if e != nil {
				logrus.WithError(e).Warn("Skipping file")
				failed++
				return
			}
			stats.merge(fileStats)
		}(name)
	}
	wg.Wait()
	return stats, failed
}

// Returns the .mid and .midi files in dir, in sorted order.
func findMIDIFiles(dir string) ([]string, error) {
	entries, e := os.ReadDir(dir)
	if e != nil {
		return nil, errors.Wrapf(e, "Failed listing %s", dir)
	}
	var toReturn []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if (ext == ".mid") || (ext == ".midi") {
			toReturn = append(toReturn, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(toReturn)
	return toReturn, nil
}

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

func run() int {
	var baseDir, logLevel string
	var workers int
	flag.StringVar(&baseDir, "dir", "", "The directory to scan for .mid files")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "The maximum number "+
		"of files to scan at once")
	flag.StringVar(&logLevel, "log_level", "", "The logrus log level. "+
		"Defaults to $LOG_LEVEL, or info.")
	flag.Parse()
	if baseDir == "" {
		fmt.Println("A base directory must be specified. " +
			"Run with -help for usage.")
		return 1
	}
	if workers < 1 {
		fmt.Printf("At least one worker is required, got %d.\n", workers)
		return 1
	}
	e := configureLogging(logLevel)
	if e != nil {
		fmt.Printf("Invalid log level: %s\n", e)
		return 1
	}
	filenames, e := findMIDIFiles(baseDir)
	if e != nil {
		fmt.Printf("Failed looking up MIDI files: %s\n", e)
		return 1
	}
	if len(filenames) <= 0 {
		fmt.Printf("Didn't find any MIDI (.mid) files in dir %s.\n", baseDir)
		return 1
	}
	logrus.WithFields(logrus.Fields{
		"files":   len(filenames),
		"workers": workers,
	}).Info("Scanning MIDI files")
	stats, failed := scanFiles(filenames, workers)
	if failed != 0 {
		logrus.Warnf("%d of %d files couldn't be read", failed, len(filenames))
	}
	stats.printInfo(os.Stdout)
	return 0
}

func main() {
	os.Exit(run())
}
