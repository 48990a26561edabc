// Package synth drives a voice and the stereo enhancer over a fixed number
// of output samples.
package synth

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/sample"
	"github.com/hiway/samplepiano/pkg/stereo"
	"github.com/hiway/samplepiano/pkg/voice"
)

// RenderOptions controls one render call.
type RenderOptions struct {
	// Samples is the number of stereo frames to render.
	Samples int
	// ReleaseAfter releases the key after this many frames. Zero holds the key.
	ReleaseAfter int
	// Sustain holds the pedal down when the key is released; the pedal
	// lifts SustainFor frames later.
	Sustain    bool
	SustainFor int
	// StopOnSilence ends the render early once the envelope falls below voice.Silence.
	StopOnSilence bool
}

// Validate checks the render options.
func (o *RenderOptions) Validate() error {
	if o.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", o.Samples)
	}
	if o.ReleaseAfter < 0 {
		return fmt.Errorf("release_after cannot be negative, got %d", o.ReleaseAfter)
	}
	if o.SustainFor < 0 {
		return fmt.Errorf("sustain_for cannot be negative, got %d", o.SustainFor)
	}
	return nil
}

// Synth renders single notes from a bank with a fixed tone.
type Synth struct {
	bank *sample.Bank
	tone voice.Tone
	log  zerolog.Logger
}

// New creates a Synth. The bank is shared and never modified.
func New(bank *sample.Bank, tone voice.Tone, log zerolog.Logger) *Synth {
	return &Synth{
		bank: bank,
		tone: tone,
		log:  log.With().Str("component", "synth").Logger(),
	}
}

// Tone returns the synth's tonal constants.
func (s *Synth) Tone() voice.Tone {
	return s.tone
}

// Render plays note at velocity and returns the widened stereo output.
func (s *Synth) Render(note int, velocity float64, opts RenderOptions) (*Buffer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render options: %w", err)
	}

	v, err := voice.NewVoice(s.bank, s.tone, note, velocity)
	if err != nil {
		return nil, fmt.Errorf("failed to start note %d: %w", note, err)
	}

	enh, err := stereo.New(stereo.SizeForRate(s.tone.SampleRate), float32(s.tone.Depth))
	if err != nil {
		return nil, fmt.Errorf("failed to create stereo enhancer: %w", err)
	}

	outl, outr := v.Gains()
	s.log.Debug().
		Int("note", v.Note()).
		Float64("velocity", velocity).
		Int("root", v.Keygroup().Root).
		Int("delta", v.Delta()).
		Float32("env", v.Env()).
		Float32("dec", v.Dec()).
		Float32("ff", v.Cutoff()).
		Float32("outl", outl).
		Float32("outr", outr).
		Int("comb_size", enh.Size()).
		Float32("comb_depth", enh.Depth()).
		Msg("Voice started")

	buf := NewBuffer(opts.Samples, int(s.tone.SampleRate))
	n := s.run(v, enh, buf, opts)
	buf.truncate(n)

	if g := v.Guarded(); g > 0 {
		s.log.Warn().Int("note", note).Int("guarded", g).Msg("Stability guard zeroed output samples")
	}
	s.log.Debug().Int("note", note).Int("frames", n).Float32("env", v.Env()).Msg("Render finished")

	return buf, nil
}

// run is the per-sample loop. It does not allocate.
func (s *Synth) run(v *voice.Voice, enh *stereo.Enhancer, buf *Buffer, opts RenderOptions) int {
	pedalUp := -1
	for i := 0; i < opts.Samples; i++ {
		if opts.ReleaseAfter > 0 && i == opts.ReleaseAfter {
			if opts.Sustain {
				pedalUp = i + opts.SustainFor
			} else {
				v.Release()
			}
		}
		if i == pedalUp {
			v.SustainRelease()
		}

		l, r := v.Tick()
		buf.Left[i], buf.Right[i] = enh.Process(l, r)

		if opts.StopOnSilence && v.Silent() {
			return i + 1
		}
	}
	return opts.Samples
}
