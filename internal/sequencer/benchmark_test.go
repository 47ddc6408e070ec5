package sequencer

import (
	"testing"

	"github.com/cbegin/gen-go/internal/playback"
	"github.com/cbegin/gen-go/internal/synth"
)

func BenchmarkSequencerProcess(b *testing.B) {
	data, err := playback.GenerateFromSource("---\ntempo: 150\n---\n@ch:C C// D// E// F// G// A// B// ^C// C// D// E// F// G// A// B// ^C//", playback.Options{})
	if err != nil {
		b.Fatalf("generate failed: %v", err)
	}
	buf := make([]float32, 2048*2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine := synth.New(48000, synth.DefaultParams())
		seq := New(data, engine, 48000)
		seq.Process(buf)
	}
}
