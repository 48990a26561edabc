package audition

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/config"
	"github.com/hiway/samplepiano/pkg/player"
	"github.com/hiway/samplepiano/pkg/sample"
	"github.com/hiway/samplepiano/pkg/synth"
	"github.com/hiway/samplepiano/pkg/voice"
)

func testSynth(t *testing.T) *synth.Synth {
	t.Helper()

	kgs := sample.DefaultKeygroups()
	pcm := make([]int16, kgs[len(kgs)-1].End+2)
	for i := range pcm {
		pcm[i] = int16((i*7919)%20000 - 10000)
	}
	bank, err := sample.NewBank(pcm, kgs)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	return synth.New(bank, voice.DefaultTone(), zerolog.Nop())
}

func testConfig() config.Audition {
	return config.Audition{
		BaseNote:    48,
		Velocity:    100,
		Samples:     256,
		QueueLength: 8,
	}
}

func TestKeyNote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  byte
		want int
		ok   bool
	}{
		{'a', 0, true},
		{'w', 1, true},
		{'j', 11, true},
		{'k', 12, true},
		{'\'', 17, true},
		{'m', 0, false},
		{'z', 0, false},
	}

	for _, tt := range tests {
		got, ok := KeyNote(tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("KeyNote(%q) = %d, %v; expected %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHandleInputQueuesNotes(t *testing.T) {
	t.Parallel()

	p := player.NewStubPlayer(zerolog.Nop())
	p.Played = make(chan *synth.Buffer, 8)

	// A reader that never returns keeps the terminal idle.
	r, w := io.Pipe()
	defer w.Close()

	a, err := New(testConfig(), testSynth(t), p, r, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Stop()

	if err := a.handleInput([]byte("a?xk")); err != nil {
		t.Fatalf("handleInput failed: %v", err)
	}
	if a.Octave() != 1 {
		t.Errorf("expected octave 1, got %d", a.Octave())
	}

	for i := 0; i < 2; i++ {
		select {
		case buf := <-p.Played:
			if buf.Len() == 0 || buf.Len() > 256 {
				t.Errorf("note %d: unexpected length %d", i, buf.Len())
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("note %d was not played", i)
		}
	}

	select {
	case <-p.Played:
		t.Error("unmapped key produced a note")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQuitKeyEndsSession(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	a, err := New(testConfig(), testSynth(t), player.NewStubPlayer(zerolog.Nop()), r, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()

	go func() {
		_, _ = w.Write([]byte("q"))
		_ = w.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("audition did not stop on quit key")
	}
}

func TestContextCancelEndsSession(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()

	a, err := New(testConfig(), testSynth(t), player.NewStubPlayer(zerolog.Nop()), r, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("audition did not stop on cancel")
	}
}

func TestOctaveIsClamped(t *testing.T) {
	t.Parallel()

	p := player.NewStubPlayer(zerolog.Nop())
	p.Played = make(chan *synth.Buffer, 1)

	r, w := io.Pipe()
	defer w.Close()

	a, err := New(testConfig(), testSynth(t), p, r, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Stop()

	// Base note 48: five octaves up puts the top key on 125, a sixth would pass 127.
	if err := a.handleInput([]byte(strings.Repeat("x", 20))); err != nil {
		t.Fatal(err)
	}
	if a.Octave() != 5 {
		t.Errorf("expected octave clamped to 5, got %d", a.Octave())
	}
	if err := a.handleInput([]byte(strings.Repeat("z", 40))); err != nil {
		t.Fatal(err)
	}
	if a.Octave() != -4 {
		t.Errorf("expected octave clamped to -4, got %d", a.Octave())
	}

	// The top key at the highest octave still renders and plays.
	if err := a.handleInput([]byte(strings.Repeat("x", 20) + "'")); err != nil {
		t.Fatal(err)
	}
	select {
	case buf := <-p.Played:
		if buf.Len() == 0 {
			t.Error("expected the top key to produce output")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("top key was not played")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Audition)
	}{
		{"zero samples", func(c *config.Audition) { c.Samples = 0 }},
		{"negative base note", func(c *config.Audition) { c.BaseNote = -1 }},
		{"top key past 127", func(c *config.Audition) { c.BaseNote = 111 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.modify(&cfg)
			if _, err := New(cfg, testSynth(t), player.NewStubPlayer(zerolog.Nop()), io.MultiReader(), zerolog.Nop()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
