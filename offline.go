package gen

import (
	"encoding/binary"
	"fmt"
	"math"

	intfx "github.com/cbegin/gen-go/internal/effects"
	intseq "github.com/cbegin/gen-go/internal/sequencer"
	intsynth "github.com/cbegin/gen-go/internal/synth"
)

// releaseTail is rendered after the last note when no length is given.
const releaseTail = 1.0

var baseGain = intsynth.DefaultParams().MasterGain

// RenderOptions configures Render.
type RenderOptions struct {
	SampleRate int
	// Seconds <= 0 renders the whole schedule plus a short release tail.
	Seconds float64
	// Room is "dry" (default), "room" or "hall".
	Room         string
	NoChords     bool
	StraightTime bool
}

// Render renders data offline as interleaved stereo float32 frames.
func Render(data *PlaybackData, opts RenderOptions) ([]float32, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", opts.SampleRate)
	}
	room, ok := intfx.ParseRoom(opts.Room)
	if !ok {
		return nil, fmt.Errorf("unknown room %q", opts.Room)
	}
	seconds := opts.Seconds
	if seconds <= 0 {
		seconds = data.Seconds(data.End()) + releaseTail
	}
	seq := intseq.NewWithOptions(data, newMixer(opts.SampleRate, 1, 1), opts.SampleRate, intseq.Options{
		NoChords:     opts.NoChords,
		StraightTime: opts.StraightTime,
	})
	out := make([]float32, int(float64(opts.SampleRate)*seconds)*2)
	seq.Process(out)
	intfx.NewBus(opts.SampleRate, room).ProcessBuffer(out)
	return out, nil
}

// RenderSamples renders data dry. seconds <= 0 renders the whole schedule
// plus a short release tail.
func RenderSamples(data *PlaybackData, sampleRate int, seconds float64) []float32 {
	out, err := Render(data, RenderOptions{SampleRate: sampleRate, Seconds: seconds})
	if err != nil {
		return nil
	}
	return out
}

// newMixer layers a melody engine and a chord engine.
func newMixer(sampleRate int, volume, chordLevel float64) *intseq.Mixer {
	params := intsynth.DefaultParams()
	mix := intseq.NewMixer()
	mix.AddLayer(intseq.ProgramMelody, intsynth.New(sampleRate, params))
	mix.AddLayer(intseq.ProgramChord, intsynth.New(sampleRate, params))
	mix.SetLevel(intseq.ProgramChord, chordLevel)
	mix.SetMasterGain(baseGain * volume)
	return mix
}

// EncodeWAVFloat32LE wraps samples in a RIFF/WAVE container with IEEE float
// format (tag 3).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	const headerSize = 44
	dataSize := len(samples) * 4
	out := make([]byte, headerSize+dataSize)

	le := binary.LittleEndian
	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(headerSize-8+dataSize))
	copy(out[8:], "WAVEfmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], 3)
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*channels*4))
	le.PutUint16(out[32:], uint16(channels*4))
	le.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		le.PutUint32(out[headerSize+i*4:], math.Float32bits(s))
	}
	return out
}
