package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Terminal reads keystrokes from stdin, switching it to raw mode when it is
// a terminal so that single keys arrive without waiting for Enter.
type Terminal struct {
	log      zerolog.Logger
	stdin    io.Reader
	oldState *term.State
	fd       int
	stopOnce sync.Once
	stopChan chan struct{}

	// Callback for processing keystrokes
	HandleInput func(data []byte) error
}

// NewTerminal creates a new Terminal instance.
func NewTerminal(log zerolog.Logger, stdin io.Reader) *Terminal {
	return &Terminal{
		log:      log.With().Str("component", "terminal").Logger(),
		stdin:    stdin,
		fd:       -1,
		stopChan: make(chan struct{}),
	}
}

// Start enables raw mode when possible and begins reading input.
func (t *Terminal) Start() error {
	if f, ok := t.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		oldState, err := term.MakeRaw(t.fd)
		if err != nil {
			t.log.Error().Err(err).Msg("Failed to set raw mode on stdin")
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		t.oldState = oldState
		t.log.Debug().Msg("Stdin switched to raw mode")
	}

	go t.copyInput()

	t.log.Info().Msg("Terminal session started")
	return nil
}

// Stop restores the terminal and signals the session to end.
func (t *Terminal) Stop() {
	t.stopOnce.Do(func() {
		t.log.Debug().Msg("Stopping terminal")
		close(t.stopChan)
		if t.oldState != nil {
			if err := term.Restore(t.fd, t.oldState); err != nil {
				t.log.Warn().Err(err).Msg("Failed to restore terminal state")
			} else {
				t.log.Debug().Msg("Restored terminal state")
			}
		}
		t.log.Info().Msg("Terminal session stopped")
	})
}

// Wait blocks until the terminal is stopped.
func (t *Terminal) Wait() {
	<-t.stopChan
}

// copyInput reads from stdin and calls HandleInput for every chunk.
func (t *Terminal) copyInput() {
	buf := make([]byte, 32)
	for {
		select {
		case <-t.stopChan:
			t.log.Debug().Msg("Input reader stopping")
			return
		default:
			n, err := t.stdin.Read(buf)
			if n > 0 && t.HandleInput != nil {
				if err := t.HandleInput(buf[:n]); err != nil {
					t.log.Error().Err(err).Msg("Input handler failed")
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !strings.Contains(err.Error(), "file already closed") {
					t.log.Error().Err(err).Msg("Stdin read error")
				}
				t.Stop() // Trigger shutdown on stdin error/EOF
				return
			}
		}
	}
}
