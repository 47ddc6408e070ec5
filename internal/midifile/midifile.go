// Package midifile writes playback schedules as Standard MIDI Files and
// reads note events back from them.
package midifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/gen-go/internal/playback"
)

const (
	Resolution = smf.MetricTicks(480)

	melodyChannel = 0
	chordChannel  = 1

	melodyVelocity = 100
	chordVelocity  = 64
)

type Options struct {
	Title string
	// MelodyProgram and ChordProgram are General MIDI program numbers.
	MelodyProgram uint8
	ChordProgram  uint8
	// Meter is written when both values are set.
	Numerator   uint8
	Denominator uint8
	// NoChords leaves the accompaniment track out.
	NoChords bool
}

type timedMessage struct {
	tick uint64
	off  bool
	msg  []byte
}

// Build converts data into a format 1 SMF: a tempo track, the melody on
// channel 1 and chord accompaniment on channel 2.
func Build(data *playback.Data, opts Options) (*smf.SMF, error) {
	s := smf.New()
	s.TimeFormat = Resolution

	quarterBPM := float64(data.Tempo)
	if quarterBPM <= 0 {
		quarterBPM = 120
	}
	// schedule time -> quarter notes -> ticks
	toTicks := func(t float64) uint64 {
		quarters := data.Seconds(t) * quarterBPM / 60
		if quarters < 0 {
			return 0
		}
		return uint64(math.Round(quarters * float64(Resolution.Ticks4th())))
	}

	var conductor smf.Track
	if opts.Title != "" {
		conductor.Add(0, smf.MetaTrackSequenceName(opts.Title))
	}
	if opts.Numerator > 0 && opts.Denominator > 0 {
		conductor.Add(0, smf.MetaMeter(opts.Numerator, opts.Denominator))
	}
	conductor.Add(0, smf.MetaTempo(quarterBPM))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("add tempo track: %w", err)
	}

	var melody []timedMessage
	for _, n := range data.Notes {
		key, ok := midiKey(n.MIDINote)
		if !ok {
			continue
		}
		start, end := toTicks(n.StartTime), toTicks(n.StartTime+n.Duration)
		melody = append(melody,
			timedMessage{tick: start, msg: midi.NoteOn(melodyChannel, key, melodyVelocity)},
			timedMessage{tick: end, off: true, msg: midi.NoteOff(melodyChannel, key)},
		)
	}
	if err := s.Add(track("Melody", melodyChannel, opts.MelodyProgram, melody)); err != nil {
		return nil, fmt.Errorf("add melody track: %w", err)
	}

	if opts.NoChords || len(data.Chords) == 0 {
		return s, nil
	}
	var chords []timedMessage
	for _, c := range data.Chords {
		start, end := toTicks(c.StartTime), toTicks(c.StartTime+c.Duration)
		for _, p := range c.MIDINotes {
			key, ok := midiKey(p)
			if !ok {
				continue
			}
			chords = append(chords,
				timedMessage{tick: start, msg: midi.NoteOn(chordChannel, key, chordVelocity)},
				timedMessage{tick: end, off: true, msg: midi.NoteOff(chordChannel, key)},
			)
		}
	}
	if err := s.Add(track("Chords", chordChannel, opts.ChordProgram, chords)); err != nil {
		return nil, fmt.Errorf("add chord track: %w", err)
	}
	return s, nil
}

// track orders events by tick, note-offs first so repeated pitches retrigger.
func track(name string, channel, program uint8, events []timedMessage) smf.Track {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	tr.Add(0, midi.ProgramChange(channel, program))
	var last uint64
	for _, ev := range events {
		tr.Add(uint32(ev.tick-last), ev.msg)
		last = ev.tick
	}
	tr.Close(0)
	return tr
}

func midiKey(n int) (uint8, bool) {
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

// Write encodes data as a Standard MIDI File to w.
func Write(w io.Writer, data *playback.Data, opts Options) error {
	s, err := Build(data, opts)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// NoteEvent is a sounding note read back from a MIDI file.
type NoteEvent struct {
	Channel uint8
	Key     uint8
	// Start and Duration are in seconds.
	Start    float64
	Duration float64
}

// ReadNotes parses an SMF and pairs note-ons with their note-offs. Events are
// ordered by start time, then channel and key.
func ReadNotes(r io.Reader) (notes []NoteEvent, e error) {
	// smf can panic on truncated input
	defer func() {
		if rec := recover(); rec != nil {
			notes, e = nil, fmt.Errorf("error parsing midi file... %v", rec)
		}
	}()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading midi file... %w", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error parsing midi file... %w", err)
	}

	type held struct {
		channel, key uint8
	}
	for _, events := range s.Tracks {
		var absTicks int64
		open := map[held]int64{}
		for _, event := range events {
			absTicks += int64(event.Delta)
			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				open[held{channel, key}] = absTicks
			case event.Message.GetNoteOff(&channel, &key, &velocity),
				event.Message.GetNoteOn(&channel, &key, &velocity):
				h := held{channel, key}
				start, ok := open[h]
				if !ok {
					continue
				}
				delete(open, h)
				begin := float64(s.TimeAt(start)) / 1e6
				notes = append(notes, NoteEvent{
					Channel:  channel,
					Key:      key,
					Start:    begin,
					Duration: float64(s.TimeAt(absTicks))/1e6 - begin,
				})
			}
		}
	}
	if len(notes) == 0 {
		return nil, errors.New("no notes in midi file")
	}
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Key < b.Key
	})
	return notes, nil
}
