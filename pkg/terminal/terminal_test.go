package terminal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTerminalDeliversInputAndStopsOnEOF(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		got bytes.Buffer
	)
	term := NewTerminal(zerolog.Nop(), strings.NewReader("asdf"))
	term.HandleInput = func(data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got.Write(data)
		return nil
	}

	if err := term.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		term.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("terminal did not stop on EOF")
	}

	mu.Lock()
	defer mu.Unlock()
	if got.String() != "asdf" {
		t.Errorf("expected input %q, got %q", "asdf", got.String())
	}
}

func TestTerminalStopIsIdempotent(t *testing.T) {
	t.Parallel()

	term := NewTerminal(zerolog.Nop(), strings.NewReader(""))
	term.Stop()
	term.Stop()
	term.Wait()
}
