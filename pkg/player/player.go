package player

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/synth"
)

// Player is the interface for playing rendered notes.
type Player interface {
	Play(buf *synth.Buffer) error
	Close() error
}

var (
	otoCtx  *oto.Context
	otoRate int
	once    sync.Once
	ctxErr  error
)

// initOtoContext initializes the oto context singleton. Oto allows one
// context per process, so the first sample rate wins.
func initOtoContext(sampleRate int) (*oto.Context, error) {
	once.Do(func() {
		op := &oto.NewContextOptions{}
		op.SampleRate = sampleRate
		op.ChannelCount = synth.ChannelCount
		op.Format = oto.FormatSignedInt16LE

		var readyChan chan struct{}
		otoCtx, readyChan, ctxErr = oto.NewContext(op)
		if ctxErr == nil {
			<-readyChan // Wait for the context to be ready
			otoRate = sampleRate
		}
	})
	if ctxErr == nil && otoRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, cannot switch to %d Hz", otoRate, sampleRate)
	}
	return otoCtx, ctxErr
}

// OtoPlayer uses the ebitengine/oto/v3 library to play rendered buffers.
type OtoPlayer struct {
	log        zerolog.Logger
	ctx        *oto.Context
	sampleRate int
}

// NewOtoPlayer creates a new player using the Oto library.
func NewOtoPlayer(sampleRate int, log zerolog.Logger) (*OtoPlayer, error) {
	ctx, err := initOtoContext(sampleRate)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize Oto audio context")
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	log.Debug().Int("sample_rate", sampleRate).Msg("Oto audio context initialized successfully")

	return &OtoPlayer{
		log:        log.With().Str("player_type", "oto").Logger(),
		ctx:        ctx,
		sampleRate: sampleRate,
	}, nil
}

// Play normalizes buf to 16-bit and blocks until playback completes.
func (p *OtoPlayer) Play(buf *synth.Buffer) error {
	if buf.SampleRate != p.sampleRate {
		return fmt.Errorf("buffer rate %d Hz does not match player rate %d Hz", buf.SampleRate, p.sampleRate)
	}
	if buf.Len() == 0 {
		p.log.Debug().Msg("Skipping playback of empty buffer")
		return nil
	}

	data, err := buf.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode buffer: %w", err)
	}

	p.log.Debug().
		Int("frames", buf.Len()).
		Float32("peak", buf.Peak()).
		Msg("Playing buffer")

	if err := p.playSound(bytes.NewReader(data)); err != nil {
		p.log.Error().Err(err).Msg("Failed to play sound")
		return fmt.Errorf("failed to play sound: %w", err)
	}

	p.log.Trace().Msg("Finished playing buffer")
	return nil
}

// playSound plays the raw audio data from an io.Reader.
func (p *OtoPlayer) playSound(reader io.Reader) error {
	player := p.ctx.NewPlayer(reader)
	defer player.Close()

	player.Play()

	// Playback is blocking; the queue plays one note at a time.
	for player.IsPlaying() {
		time.Sleep(time.Millisecond)
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("oto player error: %w", err)
	}
	return nil
}

// Close cleans up the OtoPlayer resources.
func (p *OtoPlayer) Close() error {
	p.log.Debug().Msg("Closing OtoPlayer")
	// The Oto context is global and shared, so it stays open.
	return nil
}

// StubPlayer records played buffers instead of producing sound.
type StubPlayer struct {
	log    zerolog.Logger
	mu     sync.Mutex
	played []*synth.Buffer

	// Played, if set, receives every buffer after it is recorded.
	Played chan *synth.Buffer
}

// NewStubPlayer creates a new StubPlayer.
func NewStubPlayer(log zerolog.Logger) *StubPlayer {
	return &StubPlayer{log: log.With().Str("player_type", "stub").Logger()}
}

// Play records buf.
func (p *StubPlayer) Play(buf *synth.Buffer) error {
	p.log.Debug().Int("frames", buf.Len()).Msg("Simulating playing buffer")

	p.mu.Lock()
	p.played = append(p.played, buf)
	p.mu.Unlock()

	if p.Played != nil {
		p.Played <- buf
	}
	return nil
}

// Buffers returns everything played so far.
func (p *StubPlayer) Buffers() []*synth.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*synth.Buffer(nil), p.played...)
}

// Close cleans up the StubPlayer resources.
func (p *StubPlayer) Close() error {
	p.log.Debug().Msg("Closing StubPlayer")
	return nil
}
