package gen

import (
	"errors"
	"sync"
	"sync/atomic"

	intaudio "github.com/cbegin/gen-go/internal/audio"
	intfx "github.com/cbegin/gen-go/internal/effects"
	intseq "github.com/cbegin/gen-go/internal/sequencer"
)

// PlaybackEvent is delivered on the channel returned by Watch.
type PlaybackEvent struct {
	Kind int // EventLoopCompleted, EventPlaybackEnded or EventNote
	// Note is the melody note that just started, for EventNote. Its
	// OSMDMatchKey identifies the drawn note to highlight.
	Note PlaybackNote
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
	EventNote
)

const defaultChordLevel = 0.6

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loopPlayback bool
	chords       bool
	straightTime bool
	volume       float64
	chordLevel   float64
	room         intfx.Room
	sampleTap    func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{chords: true, volume: 1, chordLevel: defaultChordLevel, room: intfx.RoomDry}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithChords turns the chord accompaniment on or off. It is on by default.
func WithChords(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.chords = enabled
	}
}

// WithStraightTime plays swung scores straight.
func WithStraightTime(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.straightTime = enabled
	}
}

func WithVolume(volume float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.volume = clampLevel(volume)
	}
}

// WithChordLevel sets the accompaniment level relative to the melody.
func WithChordLevel(level float64) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.chordLevel = clampLevel(level)
	}
}

// WithRoom selects the master bus preset: "dry", "room" or "hall".
// Unknown names are ignored.
func WithRoom(name string) PlayerOption {
	return func(cfg *playerConfig) {
		if room, ok := intfx.ParseRoom(name); ok {
			cfg.room = room
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

// Player plays schedules through the system audio output.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	cfg        playerConfig
	transpose  int
	mixer      *intseq.Mixer
	audio      *intaudio.Player
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// eventWrapper adapts a sequencer to the audio stream and signals the end of
// non-looping playback.
type eventWrapper struct {
	seq      *intseq.Sequencer
	bus      *intfx.Chain
	finished atomic.Bool
}

func (w *eventWrapper) Process(dst []float32) {
	w.seq.Process(dst)
	w.bus.ProcessBuffer(dst)
}

func (w *eventWrapper) Finished() bool {
	return w.finished.Load()
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{
		sampleRate: sampleRate,
		cfg:        cfg,
		mixer:      newMixer(sampleRate, cfg.volume, cfg.chordLevel),
	}, nil
}

// PlaySource compiles src without validation and plays it.
func (p *Player) PlaySource(src string, opts CompileOptions) error {
	data, err := GeneratePlaybackData(src, opts)
	if err != nil {
		return err
	}
	return p.Play(data)
}

// Play replaces any current playback with data.
func (p *Player) Play(data *PlaybackData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	wrapper := &eventWrapper{bus: intfx.NewBus(p.sampleRate, p.cfg.room)}
	onEvent := func(ev intseq.Event) {
		switch ev.Kind {
		case intseq.EventNote:
			p.sendEvent(PlaybackEvent{Kind: EventNote, Note: ev.Note})
		case intseq.EventLoopCompleted:
			p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
		case intseq.EventPlaybackEnded:
			wrapper.finished.Store(true)
			p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
			p.signalDone()
		}
	}

	// Fresh engines per Play so release tails do not leak between scores.
	p.mixer = newMixer(p.sampleRate, p.cfg.volume, p.cfg.chordLevel)
	wrapper.seq = intseq.NewWithOptions(data, p.mixer, p.sampleRate, intseq.Options{
		Loop:         p.cfg.loopPlayback,
		OnEvent:      onEvent,
		Transpose:    p.transpose,
		NoChords:     !p.cfg.chords,
		StraightTime: p.cfg.straightTime,
	})

	backend, err := intaudio.NewPlayer(p.sampleRate, wrapper, p.cfg.sampleTap)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. With loop playback enabled
// it blocks until Stop or the next Play.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel of playback events. Note events let a viewer
// follow along by OSMDMatchKey.
//
// The channel is buffered (cap 64) and events are dropped when it is full.
// Only the most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	volume = clampLevel(volume)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.volume = volume
	p.mixer.SetMasterGain(baseGain * volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.volume
}

// SetChordLevel changes the accompaniment level immediately.
func (p *Player) SetChordLevel(level float64) {
	level = clampLevel(level)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.chordLevel = level
	p.mixer.SetLevel(intseq.ProgramChord, level)
}

func (p *Player) ChordLevel() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.chordLevel
}

// SetTranspose sets the octave shift applied to all notes.
// Takes effect on the next Play/PlaySource call.
func (p *Player) SetTranspose(octaves int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transpose = octaves
}

func (p *Player) Transpose() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transpose
}

// PlaybackPosition returns the frame the listener hears now, or 0 when
// nothing is playing.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return int64(a.Position().Seconds() * float64(p.sampleRate))
}

func clampLevel(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
