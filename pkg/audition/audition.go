// Package audition plays notes from the computer keyboard.
package audition

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/config"
	"github.com/hiway/samplepiano/pkg/player"
	"github.com/hiway/samplepiano/pkg/queue"
	"github.com/hiway/samplepiano/pkg/synth"
	"github.com/hiway/samplepiano/pkg/terminal"
)

// Keys lays out semitones over two rows of the keyboard, starting at the
// base note on 'a'.
const Keys = "awsedftgyhujkolp;'"

// MaxNote is the highest note the keyboard may reach.
const MaxNote = 127

const (
	keyOctaveDown = 'z'
	keyOctaveUp   = 'x'
	keyQuit       = 'q'
	keyCtrlC      = 0x03
	keyCtrlD      = 0x04
)

// KeyNote maps a key to its offset in semitones from the base note.
func KeyNote(b byte) (int, bool) {
	for i := 0; i < len(Keys); i++ {
		if Keys[i] == b {
			return i, true
		}
	}
	return 0, false
}

// Audition manages the keyboard session.
type Audition struct {
	cfg      config.Audition
	synth    *synth.Synth
	term     *terminal.Terminal
	player   player.Player
	queue    *queue.Queue
	log      zerolog.Logger
	mu       sync.Mutex
	octave   int
	stopOnce sync.Once
	stopChan chan struct{}
}

// New creates an audition session reading keys from stdin.
func New(cfg config.Audition, s *synth.Synth, p player.Player, stdin io.Reader, log zerolog.Logger) (*Audition, error) {
	log = log.With().Str("component", "audition").Logger()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audition config: %w", err)
	}
	if top := MaxNote - (len(Keys) - 1); cfg.BaseNote < 0 || cfg.BaseNote > top {
		return nil, fmt.Errorf("base_note must be between 0 and %d, got %d", top, cfg.BaseNote)
	}

	a := &Audition{
		cfg:      cfg,
		synth:    s,
		player:   p,
		log:      log,
		stopChan: make(chan struct{}),
	}

	q, err := queue.NewQueue("keyboard", cfg.QueueLength, a.render, p, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue: %w", err)
	}
	a.queue = q

	a.term = terminal.NewTerminal(log, stdin)
	a.term.HandleInput = a.handleInput

	return a, nil
}

// Start begins the session and blocks until it ends.
func (a *Audition) Start(ctx context.Context) error {
	if err := a.term.Start(); err != nil {
		a.Stop()
		return fmt.Errorf("failed to start terminal: %w", err)
	}

	a.log.Info().
		Int("base_note", a.cfg.BaseNote).
		Str("keys", Keys).
		Msg("Audition started, press q to quit")

	go func() {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("Context canceled, stopping audition")
			a.Stop()
		case <-a.stopChan:
			return
		}
	}()

	a.term.Wait()
	a.Stop()
	return nil
}

// Stop ends the session, waiting for the note being played.
func (a *Audition) Stop() {
	a.stopOnce.Do(func() {
		a.log.Debug().Msg("Stopping audition")
		close(a.stopChan)

		a.term.Stop()
		a.queue.Stop()

		if err := a.player.Close(); err != nil {
			a.log.Error().Err(err).Msg("Error closing audio player")
		}

		a.log.Info().Msg("Audition stopped")
	})
}

// Octave returns the current octave shift.
func (a *Audition) Octave() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.octave
}

// handleInput turns keystrokes into queued notes.
func (a *Audition) handleInput(data []byte) error {
	for _, b := range data {
		switch b {
		case keyQuit, keyCtrlC, keyCtrlD:
			a.log.Debug().Msg("Quit key pressed")
			go a.Stop()
			return nil
		case keyOctaveDown:
			a.shift(-1)
			continue
		case keyOctaveUp:
			a.shift(1)
			continue
		}

		offset, ok := KeyNote(b)
		if !ok {
			a.log.Trace().Str("char", string(b)).Msg("Ignoring unmapped key")
			continue
		}
		note := a.cfg.BaseNote + 12*a.Octave() + offset
		a.log.Trace().Str("char", string(b)).Int("note", note).Msg("Key matched note")
		a.queue.Add(queue.Note{Key: note, Velocity: a.cfg.Velocity})
	}
	return nil
}

// octaveRange returns the octave shifts that keep every key between note 0
// and MaxNote.
func (a *Audition) octaveRange() (int, int) {
	lowest := -(a.cfg.BaseNote / 12)
	highest := (MaxNote - (len(Keys) - 1) - a.cfg.BaseNote) / 12
	return lowest, highest
}

func (a *Audition) shift(d int) {
	lowest, highest := a.octaveRange()

	a.mu.Lock()
	octave := min(max(a.octave+d, lowest), highest)
	changed := octave != a.octave
	a.octave = octave
	a.mu.Unlock()

	if !changed {
		a.log.Debug().Int("octave", octave).Msg("Octave at keyboard limit")
		return
	}
	a.log.Debug().Int("octave", octave).Msg("Octave changed")
}

func (a *Audition) render(n queue.Note) (*synth.Buffer, error) {
	return a.synth.Render(n.Key, n.Velocity, synth.RenderOptions{
		Samples:       a.cfg.Samples,
		StopOnSilence: true,
	})
}
