package effects

// Reverb is a Schroeder reverb: parallel feedback combs feeding series
// allpasses. The right channel runs slightly longer lines for width.
type Reverb struct {
	left, right reverbLine
	wet         float32
}

type reverbLine struct {
	combs   [4]delayLine
	allpass [2]delayLine
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

var (
	combRatios    = [4]float32{1, 1.117, 1.271, 1.437}
	allpassRatios = [2]float32{0.347, 0.213}
)

// stereoSpread is the extra right-channel line length in samples.
const stereoSpread = 23

// NewReverb builds a reverb. size (0..1) scales the line lengths, decay
// (0..0.95) is the comb feedback and wet is the mix.
func NewReverb(sampleRate int, size, decay, wet float32) *Reverb {
	base := int(float32(sampleRate) * size * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(decay, 0, 0.95)
	r := &Reverb{wet: clamp(wet, 0, 1)}
	r.left.init(base, fb)
	r.right.init(base+stereoSpread, fb)
	return r
}

func (r *Reverb) Process(l, rt float32) (float32, float32) {
	mono := (l + rt) * 0.5
	wl := r.left.process(mono)
	wr := r.right.process(mono)
	dry := 1 - r.wet
	return l*dry + wl*r.wet, rt*dry + wr*r.wet
}

func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

func (l *reverbLine) init(base int, fb float32) {
	for i, ratio := range combRatios {
		l.combs[i] = newDelayLine(int(float32(base)*ratio), fb)
	}
	for i, ratio := range allpassRatios {
		l.allpass[i] = newDelayLine(int(float32(base)*ratio), 0.5)
	}
}

func (l *reverbLine) process(in float32) float32 {
	var out float32
	for i := range l.combs {
		out += l.combs[i].comb(in)
	}
	out *= 0.25
	for i := range l.allpass {
		out = l.allpass[i].allpass(out)
	}
	return out
}

func (l *reverbLine) reset() {
	for i := range l.combs {
		l.combs[i].clear()
	}
	for i := range l.allpass {
		l.allpass[i].clear()
	}
}

func newDelayLine(n int, fb float32) delayLine {
	if n < 1 {
		n = 1
	}
	return delayLine{buf: make([]float32, n), fb: fb}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	held := d.buf[d.pos]
	d.buf[d.pos] = in + held*d.fb
	d.advance()
	return held - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) clear() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.pos = 0
}
