package sequencer

import (
	"math"
	"sort"

	"github.com/cbegin/gen-go/internal/playback"
)

type VoiceEngine interface {
	// NoteOn starts a note and returns an id for NoteOff. program selects
	// the timbre.
	NoteOn(note int, velocity int, pan int, program int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	SetMasterGain(gain float64)
	// ActiveVoiceCount returns the number of voices still sounding, release
	// tails included. Used to detect when playback has fully ended.
	ActiveVoiceCount() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
	// EventNote fires when a melody note starts.
	EventNote
)

// Event is passed to Options.OnEvent. Note is set for EventNote.
type Event struct {
	Kind EventKind
	Note playback.Note
}

const (
	ProgramMelody = 0
	ProgramChord  = 1

	melodyVelocity = 100
	chordVelocity  = 60
	chordPan       = -16
)

type Options struct {
	Loop    bool
	OnEvent func(Event)
	// ReleaseTailFrames of silence follow the last voice before playback
	// ends or loops (0 = 0.1s).
	ReleaseTailFrames int
	// Transpose shifts every note by whole octaves.
	Transpose int
	NoChords  bool
	// StraightTime ignores the schedule's swing.
	StraightTime bool
}

type voiceEvent struct {
	frame    int64
	off      bool
	ref      int // pairs an off with its on
	key      int
	velocity int
	pan      int
	program  int
	note     int // melody note index, -1 for chord tones
}

type Sequencer struct {
	data               *playback.Data
	engine             VoiceEngine
	sampleRate         int
	events             []voiceEvent
	index              int
	frame              int64
	endFrame           int64
	voices             map[int]int
	loop               bool
	onEvent            func(Event)
	tailFrames         int
	tailCountdown      int
	exhausted          bool
	playbackEndedFired bool
}

func New(data *playback.Data, engine VoiceEngine, sampleRate int) *Sequencer {
	return NewWithOptions(data, engine, sampleRate, Options{})
}

func NewWithOptions(data *playback.Data, engine VoiceEngine, sampleRate int, opts Options) *Sequencer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 10
	}
	s := &Sequencer{
		data:          data,
		engine:        engine,
		sampleRate:    sampleRate,
		voices:        map[int]int{},
		loop:          opts.Loop,
		onEvent:       opts.OnEvent,
		tailFrames:    tail,
		tailCountdown: tail,
	}
	s.schedule(opts)
	return s
}

// schedule converts the beat timeline into frame-stamped voice events.
func (s *Sequencer) schedule(opts Options) {
	swing := s.data.Swing
	if opts.StraightTime {
		swing = ""
	}
	toFrame := func(t float64) int64 {
		sec := s.data.Seconds(t)
		if swing != "" && s.data.Tempo > 0 {
			perQuarter := 60 / float64(s.data.Tempo)
			sec = SwingQuarters(sec/perQuarter, swing) * perQuarter
		}
		return int64(math.Round(sec * float64(s.sampleRate)))
	}
	shift := opts.Transpose * 12
	ref := 0
	add := func(key, velocity, pan, program, note int, start, dur float64) {
		key += shift
		if key < 0 || key > 127 {
			return
		}
		on, off := toFrame(start), toFrame(start+dur)
		if off <= on {
			off = on + 1
		}
		s.events = append(s.events,
			voiceEvent{frame: on, ref: ref, key: key, velocity: velocity, pan: pan, program: program, note: note},
			voiceEvent{frame: off, off: true, ref: ref, note: -1},
		)
		ref++
		if off > s.endFrame {
			s.endFrame = off
		}
	}
	for i, n := range s.data.Notes {
		add(n.MIDINote, melodyVelocity, 0, ProgramMelody, i, n.StartTime, n.Duration)
	}
	if !opts.NoChords {
		for _, c := range s.data.Chords {
			for _, p := range c.MIDINotes {
				add(p, chordVelocity, chordPan, ProgramChord, -1, c.StartTime, c.Duration)
			}
		}
	}
	sort.SliceStable(s.events, func(i, j int) bool {
		if s.events[i].frame != s.events[j].frame {
			return s.events[i].frame < s.events[j].frame
		}
		return s.events[i].off && !s.events[j].off
	})
}

// SwingQuarters maps a straight position in quarter notes to its swung
// position. "eighth" moves offbeat eighths to two thirds of the beat;
// "sixteenth" does the same for offbeat sixteenths within each eighth.
func SwingQuarters(q float64, swing string) float64 {
	unit := 1.0
	switch swing {
	case "eighth":
	case "sixteenth":
		unit = 0.5
	default:
		return q
	}
	cell := math.Floor(q / unit)
	frac := q/unit - cell
	if frac <= 0.5 {
		frac *= 4.0 / 3
	} else {
		frac = 2.0/3 + (frac-0.5)*2.0/3
	}
	return (cell + frac) * unit
}

// Process renders interleaved stereo frames into dst.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		s.dispatch()
		l, r := s.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = r
		s.frame++

		if !s.exhausted || s.engine.ActiveVoiceCount() > 0 {
			continue
		}
		if s.tailCountdown > 0 {
			s.tailCountdown--
			continue
		}
		if s.loop {
			s.reset()
			s.emit(Event{Kind: EventLoopCompleted})
		} else if !s.playbackEndedFired {
			s.playbackEndedFired = true
			s.emit(Event{Kind: EventPlaybackEnded})
		}
	}
}

func (s *Sequencer) dispatch() {
	for s.index < len(s.events) && s.events[s.index].frame <= s.frame {
		ev := s.events[s.index]
		s.index++
		if ev.off {
			if id, ok := s.voices[ev.ref]; ok {
				s.engine.NoteOff(id)
				delete(s.voices, ev.ref)
			}
			continue
		}
		s.voices[ev.ref] = s.engine.NoteOn(ev.key, ev.velocity, ev.pan, ev.program)
		if ev.note >= 0 {
			s.emit(Event{Kind: EventNote, Note: s.data.Notes[ev.note]})
		}
	}
	if s.index >= len(s.events) && s.frame >= s.endFrame {
		s.exhausted = true
	}
}

func (s *Sequencer) reset() {
	s.index = 0
	s.frame = 0
	s.exhausted = false
	s.tailCountdown = s.tailFrames
	for ref, id := range s.voices {
		s.engine.NoteOff(id)
		delete(s.voices, ref)
	}
}

func (s *Sequencer) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// Finished reports whether non-looping playback has ended.
func (s *Sequencer) Finished() bool { return s.playbackEndedFired }

// Frame returns the current frame within the pass.
func (s *Sequencer) Frame() int64 { return s.frame }

// Length returns the frame at which the last note is released.
func (s *Sequencer) Length() int64 { return s.endFrame }
