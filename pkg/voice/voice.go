// Package voice derives per-note synthesis parameters and renders a single
// sample-playback voice one output sample at a time.
package voice

import (
	"errors"
	"fmt"
	"math"

	"github.com/hiway/samplepiano/pkg/sample"
)

const (
	// Semitone converts semitones to a natural-log pitch ratio (ln 2 / 12).
	Semitone = math.Ln2 / 12

	// Unity is the 16.16 fixed-point phase increment for one sample per step.
	Unity = 1 << 16

	fracMask  = Unity - 1
	fullScale = 32768

	// guardLimit bounds the raw stereo pair; anything outside is forced to 0.
	guardLimit = 2.0

	maxDec = float32(0.99999994) // largest float32 below 1
)

// ErrPitchRange means a note is pitched so high that one step of its phase
// would cross the keygroup loop more than once.
var ErrPitchRange = errors.New("pitch too high for keygroup loop")

// Voice is the state of one sounding note. It reads the shared PCM buffer
// but owns all of its own phase, envelope and filter state.
type Voice struct {
	pcm []int16
	kg  sample.Keygroup

	note int

	// 16.16 phase
	pos, frac, delta int
	end, loop        int

	env, dec   float32
	ff, f0, f1 float32
	outl, outr float32

	invRate      float64
	releaseShift float64
	sustainShift float64

	guarded int
}

// NewVoice selects a keygroup for note and derives the pitch, envelope,
// filter and pan of a new voice. Out of range input is clamped, never
// rejected. The errors are a keygroup table that does not cover note and a
// pitch whose whole-sample step reaches the loop length, which would carry
// the single-subtraction wrap out of the region.
func NewVoice(bank *sample.Bank, t Tone, note int, velocity float64) (*Voice, error) {
	// Detune is pseudo-random but fixed per note so renders are reproducible.
	k := (note - 60) * (note - 60)
	l := t.Fine + t.Random*(float64(k%13)-6.5)
	if note > 60 {
		l += t.Stretch * float64(k)
	}

	s := t.Size
	if velocity > 40 {
		s += int(t.SizeVel * (velocity - 40))
	}

	kg, err := bank.Select(note, s)
	if err != nil {
		return nil, fmt.Errorf("failed to select keygroup: %w", err)
	}

	l += float64(note - kg.Root)
	ratio := t.SourceRate / t.SampleRate * math.Exp(Semitone*l)
	if !(ratio < float64(kg.Loop)) {
		return nil, fmt.Errorf("%w: note %d steps %.0f samples, loop is %d", ErrPitchRange, note, ratio, kg.Loop)
	}

	v := &Voice{
		pcm:          bank.PCM(),
		kg:           kg,
		note:         note,
		pos:          kg.Pos,
		end:          kg.End,
		loop:         kg.Loop,
		delta:        int(Unity * ratio),
		invRate:      1 / t.SampleRate,
		releaseShift: t.ReleaseShift,
		sustainShift: t.SustainShift,
	}

	v.env = float32((0.5 + t.VelSens) * math.Pow(0.0078*velocity, t.VelSens))

	cutoff := 50 + t.Muffle + t.MuffVel*(velocity-64)
	cutoff = math.Max(cutoff, 55+0.25*float64(note))
	cutoff = math.Min(cutoff, 210)
	v.ff = float32(cutoff * cutoff / t.SampleRate)

	pan := min(max(note, 12), 108)
	g := t.Volume * t.Trim
	outr := g + g*t.Width*float64(pan-60)
	v.outr = float32(outr)
	v.outl = float32(g + g - outr)

	// Very low notes would otherwise ring for implausibly long.
	decNote := max(pan, 44)
	v.dec = decayFactor(v.invRate, -0.6+0.033*float64(decNote)-t.DecayShift)

	return v, nil
}

// decayFactor returns the per-sample multiplier for a decay whose rate is
// exp(exponent) per second, kept strictly below 1.
func decayFactor(invRate, exponent float64) float32 {
	d := float32(math.Exp(-invRate * math.Exp(exponent)))
	if !(d < maxDec) {
		return maxDec
	}
	return d
}

// Tick renders one output sample and returns the raw, unwidened stereo pair.
func (v *Voice) Tick() (float32, float32) {
	v.advance()

	a := int(v.pcm[v.pos])
	i := a + (v.frac*(int(v.pcm[v.pos+1])-a))>>16
	x := v.env * float32(i) / fullScale

	v.env *= v.dec
	v.f0 += v.ff * (x + v.f1 - v.f0)
	v.f1 = x

	l := v.outl * v.f0
	r := v.outr * v.f0

	if !(l > -guardLimit && l < guardLimit) {
		l = 0
		v.guarded++
	}
	if !(r > -guardLimit && r < guardLimit) {
		r = 0
		v.guarded++
	}
	return l, r
}

// advance moves the phase one step and wraps it back into the loop.
// A single subtraction keeps the phase remainder; an increment larger than
// the loop length can leave pos past end.
func (v *Voice) advance() {
	v.frac += v.delta
	v.pos += v.frac >> 16
	v.frac &= fracMask
	if v.pos > v.end {
		v.pos -= v.loop
	}
}

// Release switches the voice to its key-up decay. The top notes from 94
// have no dampers and keep ringing.
func (v *Voice) Release() {
	if v.note < 94 {
		v.dec = decayFactor(v.invRate, 2.0+0.017*float64(v.note)-v.releaseShift)
	}
}

// SustainRelease applies the decay used when the sustain pedal lifts off a
// note whose key is already up.
func (v *Voice) SustainRelease() {
	v.dec = decayFactor(v.invRate, 6.0+0.01*float64(v.note)-v.sustainShift)
}

// Silent reports whether the envelope has decayed below Silence.
func (v *Voice) Silent() bool {
	return v.env < Silence
}

// Note returns the note the voice was started with.
func (v *Voice) Note() int { return v.note }

// Keygroup returns the keygroup the voice plays from.
func (v *Voice) Keygroup() sample.Keygroup { return v.kg }

// Delta returns the 16.16 phase increment.
func (v *Voice) Delta() int { return v.delta }

// Env returns the current envelope level.
func (v *Voice) Env() float32 { return v.env }

// Dec returns the per-sample envelope multiplier.
func (v *Voice) Dec() float32 { return v.dec }

// Cutoff returns the muffle filter coefficient.
func (v *Voice) Cutoff() float32 { return v.ff }

// Gains returns the left and right output gains.
func (v *Voice) Gains() (float32, float32) { return v.outl, v.outr }

// Guarded returns how many output values the stability guard has zeroed.
func (v *Voice) Guarded() int { return v.guarded }
