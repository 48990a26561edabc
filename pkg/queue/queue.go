package queue

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/player"
	"github.com/hiway/samplepiano/pkg/synth"
)

// Note is a request to render and play one note.
type Note struct {
	Key      int
	Velocity float64
}

// RenderFunc renders a queued note.
type RenderFunc func(n Note) (*synth.Buffer, error)

// Queue renders and plays notes one at a time on its own goroutine.
type Queue struct {
	name     string
	render   RenderFunc
	player   player.Player
	log      zerolog.Logger
	itemChan chan Note
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewQueue creates a queue holding at most maxLength pending notes.
func NewQueue(name string, maxLength int, render RenderFunc, p player.Player, log zerolog.Logger) (*Queue, error) {
	if render == nil {
		return nil, fmt.Errorf("queue '%s' has no renderer", name)
	}
	if maxLength < 1 {
		return nil, fmt.Errorf("queue '%s' needs a positive length, got %d", name, maxLength)
	}

	q := &Queue{
		name:     name,
		render:   render,
		player:   p,
		log:      log.With().Str("queue", name).Logger(),
		itemChan: make(chan Note, maxLength),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}

	// Start the note playing goroutine
	go q.run()

	return q, nil
}

// Add attempts to queue a note. It reports false when the queue is full and
// the note was dropped.
func (q *Queue) Add(n Note) bool {
	select {
	case q.itemChan <- n:
		q.log.Trace().Int("note", n.Key).Msg("Note added to queue")
		return true
	default:
		q.log.Debug().Int("note", n.Key).Msg("Queue full, dropping note")
		return false
	}
}

// Stop signals the queue to stop and waits for the note in progress.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.log.Debug().Msg("Stopping queue")
		close(q.stopChan)
	})
	<-q.done
}

// run renders and plays queued notes.
func (q *Queue) run() {
	q.log.Debug().Msg("Queue processor started")
	defer q.log.Debug().Msg("Queue processor stopped")
	defer close(q.done)

	for {
		select {
		case <-q.stopChan:
			return
		case n := <-q.itemChan:
			q.log.Trace().
				Int("note", n.Key).
				Float64("velocity", n.Velocity).
				Msg("Playing queued note")

			buf, err := q.render(n)
			if err != nil {
				q.log.Error().Err(err).Int("note", n.Key).Msg("Failed to render note")
				continue
			}
			if err := q.player.Play(buf); err != nil {
				q.log.Error().Err(err).Int("note", n.Key).Msg("Failed to play note")
			}
		}
	}
}
