package voice

import "math"

const (
	// DefaultSampleRate is the output rate in Hz.
	DefaultSampleRate = 44100.0
	// DefaultSourceRate is the rate the PCM bank was recorded at.
	DefaultSourceRate = 22050.0
	// DefaultVolume is the master output level.
	DefaultVolume = 0.2
	// DefaultMuff is the muffle amount with the mod wheel at rest.
	DefaultMuff = 160.0
	// Silence is the envelope level below which a voice is inaudible.
	Silence = 0.0001
)

// Tone holds the tonal constants that shape every voice. The formulas that
// consume these values are fixed; the values come from Params via NewTone.
type Tone struct {
	SampleRate float64 // Output rate in Hz
	SourceRate float64 // Recording rate of the PCM bank in Hz
	Volume     float64 // Master level, default 0.2

	Size    int     // Base keygroup tolerance in notes, -6..6
	SizeVel float64 // Extra tolerance per velocity step above 40

	Fine    float64 // Fine tune offset in semitones, -0.5..0.5
	Random  float64 // Weight of the per-note detune term
	Stretch float64 // Semitones per (note-60)^2 above middle C

	VelSens float64 // Exponent of the velocity to level curve

	Muffle  float64 // Muffle base added to 50 Hz, muffle knob squared times muff
	MuffVel float64 // Muffle cutoff change per velocity step around 64

	Depth float64 // Comb cross-feed depth
	Trim  float64 // Output trim compensating for comb depth
	Width float64 // Pan spread per note from middle C, at most 0.03

	DecayShift   float64 // Subtracted from the decay time exponent
	ReleaseShift float64 // Subtracted from the release time exponent
	SustainShift float64 // Subtracted from the pedal release time exponent
}

// ModWheelMuff converts a mod wheel position (0..127) into a muff amount.
// Until the wheel is first moved the instrument uses DefaultMuff.
func ModWheelMuff(wheel float64) float64 {
	wheel = math.Max(0, math.Min(wheel, 127))
	return 0.01 * (127 - wheel) * (127 - wheel)
}

// NewTone derives the tonal constants from p at the given output rate.
// muff scales the muffle knob; pass DefaultMuff or ModWheelMuff(wheel).
func NewTone(p Params, sampleRate, muff float64) Tone {
	t := Tone{
		SampleRate: sampleRate,
		SourceRate: DefaultSourceRate,
		Volume:     DefaultVolume,
	}

	t.Size = int(12*p.Hardness - 6)
	t.SizeVel = 0.12 * p.VelToHardness
	t.MuffVel = p.VelToMuffle * p.VelToMuffle * 5
	t.Muffle = p.Muffle * p.Muffle * muff

	t.VelSens = 1 + p.VelSensitivity + p.VelSensitivity
	if p.VelSensitivity < 0.25 {
		t.VelSens -= 0.75 - 3*p.VelSensitivity
	}

	t.Fine = p.FineTune - 0.5
	t.Random = 0.077 * p.RandomDetune * p.RandomDetune
	t.Stretch = 0.000434 * (p.StretchTune - 0.5)

	t.Depth = p.StereoWidth * p.StereoWidth
	t.Trim = 1.5 - 0.79*t.Depth
	t.Width = math.Min(0.04*p.StereoWidth, 0.03)

	t.DecayShift = 2 * p.Decay
	if t.DecayShift < 1 {
		t.DecayShift += 0.25 - 0.5*p.Decay
	}
	t.ReleaseShift = 2 * p.Release
	t.SustainShift = 5 * p.Release

	return t
}

// DefaultTone returns the tone of the default program at 44.1 kHz.
func DefaultTone() Tone {
	return NewTone(DefaultParams(), DefaultSampleRate, DefaultMuff)
}
