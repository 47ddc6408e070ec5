package effects

import "math"

// Compressor reduces gain above a threshold. Both channels share one
// envelope so the stereo image does not shift under compression.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	makeup    float32
	env       float32
}

// NewCompressor takes the threshold and makeup gain in dB and the attack
// and release times in milliseconds.
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     ratio,
		attack:    timeCoeff(sampleRate, attackMs),
		release:   timeCoeff(sampleRate, releaseMs),
		makeup:    dbToGain(makeupDB),
	}
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := max(abs(l), abs(r))
	coeff := c.release
	if peak > c.env {
		coeff = c.attack
	}
	c.env += coeff * (peak - c.env)
	g := c.gain() * c.makeup
	return l * g, r * g
}

func (c *Compressor) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	return float32(math.Pow(float64(c.env/c.threshold), float64(1/c.ratio-1)))
}

func (c *Compressor) Reset() { c.env = 0 }

func dbToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func timeCoeff(sampleRate int, ms float32) float32 {
	if ms <= 0 || sampleRate <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1000/(float64(ms)*float64(sampleRate))))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
