package synth

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/sample"
	"github.com/hiway/samplepiano/pkg/voice"
)

const testVelocity = 0.785714269 * 127

func pianoBank(t *testing.T, fill func(i int) int16) *sample.Bank {
	t.Helper()

	kgs := sample.DefaultKeygroups()
	pcm := make([]int16, kgs[len(kgs)-1].End+2)
	if fill != nil {
		for i := range pcm {
			pcm[i] = fill(i)
		}
	}
	b, err := sample.NewBank(pcm, kgs)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	return b
}

func noise(i int) int16 {
	// Deterministic, full-band test signal.
	return int16((i*7919)%20000 - 10000)
}

func TestRenderSilenceFromSilence(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, nil), voice.DefaultTone(), zerolog.Nop())
	buf, err := s.Render(60, testVelocity, RenderOptions{Samples: 44100})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Len() != 44100 {
		t.Fatalf("expected 44100 frames, got %d", buf.Len())
	}
	for i := range buf.Left {
		if buf.Left[i] != 0 || buf.Right[i] != 0 {
			t.Fatalf("frame %d: expected silence, got (%v, %v)", i, buf.Left[i], buf.Right[i])
		}
	}
	if buf.Peak() != 0 {
		t.Errorf("expected zero peak, got %v", buf.Peak())
	}
}

func TestRenderMatchesVoiceWithoutWidth(t *testing.T) {
	t.Parallel()

	bank := pianoBank(t, noise)
	p := voice.DefaultParams()
	p.StereoWidth = 0
	tone := voice.NewTone(p, voice.DefaultSampleRate, voice.DefaultMuff)

	buf, err := New(bank, tone, zerolog.Nop()).Render(64, 90, RenderOptions{Samples: 2000})
	if err != nil {
		t.Fatal(err)
	}

	v, err := voice.NewVoice(bank, tone, 64, 90)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2000; i++ {
		l, r := v.Tick()
		if buf.Left[i] != l || buf.Right[i] != r {
			t.Fatalf("frame %d: expected (%v, %v), got (%v, %v)", i, l, r, buf.Left[i], buf.Right[i])
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())
	a, err := s.Render(71, 100, RenderOptions{Samples: 5000})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Render(71, 100, RenderOptions{Samples: 5000})
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Left {
		if a.Left[i] != b.Left[i] || a.Right[i] != b.Right[i] {
			t.Fatalf("frame %d differs between renders", i)
		}
	}
	if a.Peak() == 0 {
		t.Error("expected audible output from a non-silent bank")
	}
}

func TestRenderOutputBounded(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())
	for _, note := range []int{0, 21, 60, 108, 127} {
		buf, err := s.Render(note, 127, RenderOptions{Samples: 3000})
		if err != nil {
			t.Fatalf("note %d: %v", note, err)
		}
		for i := range buf.Left {
			for _, x := range []float32{buf.Left[i], buf.Right[i]} {
				f := float64(x)
				if math.IsNaN(f) || math.IsInf(f, 0) {
					t.Fatalf("note %d frame %d: non-finite output", note, i)
				}
			}
		}
	}
}

func TestRenderStopOnSilence(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())
	opts := RenderOptions{Samples: 10 * 44100, ReleaseAfter: 1000, StopOnSilence: true}
	buf, err := s.Render(60, 100, opts)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= opts.Samples {
		t.Errorf("expected the render to stop early, got %d frames", buf.Len())
	}
	if buf.Len() <= opts.ReleaseAfter {
		t.Errorf("render stopped before the release, got %d frames", buf.Len())
	}
}

func TestRenderSustainDelaysRelease(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())

	base := RenderOptions{Samples: 10 * 44100, ReleaseAfter: 1000, StopOnSilence: true}
	released, err := s.Render(60, 100, base)
	if err != nil {
		t.Fatal(err)
	}

	held := base
	held.Sustain = true
	held.SustainFor = 100000
	sustained, err := s.Render(60, 100, held)
	if err != nil {
		t.Fatal(err)
	}

	if sustained.Len() <= released.Len() {
		t.Errorf("sustain should ring longer: %d vs %d frames", sustained.Len(), released.Len())
	}
}

func TestRenderRejectsBadOptions(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, nil), voice.DefaultTone(), zerolog.Nop())
	for _, opts := range []RenderOptions{
		{Samples: 0},
		{Samples: 10, ReleaseAfter: -1},
		{Samples: 10, SustainFor: -1},
	} {
		if _, err := s.Render(60, 100, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestInt16Normalizes(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(3, 44100)
	buf.Left = []float32{0.5, -0.25, 0}
	buf.Right = []float32{0, 0.25, -0.5}

	got := buf.Int16()
	want := []int16{32767, 0, -16383, 16383, 0, -32767}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	data, err := buf.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(want)*2 {
		t.Errorf("expected %d bytes, got %d", len(want)*2, len(data))
	}
	if data[0] != 0xFF || data[1] != 0x7F {
		t.Errorf("expected little-endian 32767, got % x", data[:2])
	}
}

func TestWriteWAV(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())
	buf, err := s.Render(60, 100, RenderOptions{Samples: 4410})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.WriteWAV(f); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	if !dec.IsValidFile() {
		t.Fatal("expected a valid wav file")
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if dec.NumChans != 2 || dec.SampleRate != 44100 || dec.BitDepth != 16 {
		t.Errorf("unexpected format: %d ch, %d Hz, %d bit", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	if len(pcm.Data) != buf.Len()*2 {
		t.Errorf("expected %d samples, got %d", buf.Len()*2, len(pcm.Data))
	}
}

func TestRenderRejectsPitchBeyondLoop(t *testing.T) {
	t.Parallel()

	s := New(pianoBank(t, noise), voice.DefaultTone(), zerolog.Nop())

	if _, err := s.Render(230, 100, RenderOptions{Samples: 2000}); err != nil {
		t.Errorf("note 230: expected a render, got %v", err)
	}
	for _, note := range []int{240, 300} {
		if _, err := s.Render(note, 100, RenderOptions{Samples: 2000}); !errors.Is(err, voice.ErrPitchRange) {
			t.Errorf("note %d: expected ErrPitchRange, got %v", note, err)
		}
	}

	// Every note either renders or is rejected; none reads past the bank.
	for note := -20; note <= 320; note++ {
		if _, err := s.Render(note, 127, RenderOptions{Samples: 2000}); err != nil && !errors.Is(err, voice.ErrPitchRange) {
			t.Fatalf("note %d: unexpected error %v", note, err)
		}
	}
}
