// Package samplepiano renders and plays single notes of a sampled piano.
package samplepiano

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/player"
	"github.com/hiway/samplepiano/pkg/sample"
	"github.com/hiway/samplepiano/pkg/synth"
	"github.com/hiway/samplepiano/pkg/voice"
)

// Options contains parameters for rendering one note.
type Options struct {
	// Note is the MIDI note number
	Note int
	// Velocity as a MIDI velocity, usually 0 to 127
	Velocity float64
	// Duration of the render
	Duration time.Duration
	// Hold is how long the key stays down; zero holds it for the whole render
	Hold time.Duration
	// Program names a factory preset
	Program string
	// SampleRate of the output in Hz
	SampleRate float64
}

// DefaultOptions returns one second of middle C on the default program.
func DefaultOptions() Options {
	return Options{
		Note:       60,
		Velocity:   100,
		Duration:   time.Second,
		Program:    voice.Programs[0].Name,
		SampleRate: voice.DefaultSampleRate,
	}
}

func frames(d time.Duration, rate float64) int {
	return int(d.Seconds() * rate)
}

// Render renders one note from bank with the given options.
func Render(bank *sample.Bank, opts Options) (*synth.Buffer, error) {
	params, ok := voice.LookupProgram(opts.Program)
	if !ok {
		return nil, fmt.Errorf("unknown program %q", opts.Program)
	}
	if !(opts.SampleRate > 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %f", opts.SampleRate)
	}

	tone := voice.NewTone(params, opts.SampleRate, voice.DefaultMuff)
	s := synth.New(bank, tone, zerolog.Nop())
	return s.Render(opts.Note, opts.Velocity, synth.RenderOptions{
		Samples:      frames(opts.Duration, opts.SampleRate),
		ReleaseAfter: frames(opts.Hold, opts.SampleRate),
	})
}

// PlayNote renders a note and plays it on p, blocking until playback ends.
func PlayNote(p player.Player, bank *sample.Bank, opts Options) error {
	buf, err := Render(bank, opts)
	if err != nil {
		return err
	}
	return p.Play(buf)
}

