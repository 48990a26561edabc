package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/hiway/samplepiano/pkg/audition"
	"github.com/hiway/samplepiano/pkg/config"
	"github.com/hiway/samplepiano/pkg/player"
	"github.com/hiway/samplepiano/pkg/synth"
)

const usage = `Usage: samplepiano [flags] [render|play|audition]

  render     render one note to a WAV file (default)
  play       render one note and play it
  audition   play notes from the keyboard

Flags:
`

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func main() {
	var (
		configPath = flag.String("config", "", "extra config file, applied after the standard locations")
		debug      = flag.Bool("debug", false, "enable debug logging")
		note       = flag.Int("note", -1, "MIDI note to render, overrides the config")
		velocity   = flag.Float64("velocity", -1, "MIDI velocity, overrides the config")
		output     = flag.String("out", "", "WAV output path, overrides the config")
		program    = flag.String("program", "", "factory program name, overrides the config")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	mode := "render"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}

	// Bootstrap logger until the config says otherwise
	log := newLogger(*debug)

	var extra []string
	if *configPath != "" {
		extra = append(extra, *configPath)
	}
	cfg, err := config.LoadLayered(log, extra...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug || *debug {
		log = newLogger(true)
	}

	if *program != "" {
		if err := cfg.SelectProgram(*program); err != nil {
			log.Fatal().Err(err).Msg("Invalid program")
		}
	}
	if *note >= 0 {
		cfg.Render.Note = *note
	}
	if *velocity >= 0 {
		cfg.Render.Velocity = *velocity
	}
	if *output != "" {
		cfg.Render.Output = *output
	}

	log.Debug().
		Str("mode", mode).
		Str("program", cfg.Program).
		Str("pcm", cfg.PCM.Path).
		Float64("sample_rate", cfg.SampleRate).
		Msg("Configuration resolved")

	bank, err := cfg.Bank(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load sample bank")
	}
	s := synth.New(bank, cfg.Tone(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "render":
		err = render(cfg, s, log)
	case "play":
		err = play(cfg, s, log)
	case "audition":
		err = runAudition(ctx, cfg, s, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", mode).Msg("Command failed")
	}
}

func render(cfg *config.Config, s *synth.Synth, log zerolog.Logger) error {
	buf, err := s.Render(cfg.Render.Note, cfg.Render.Velocity, cfg.Render.Options())
	if err != nil {
		return err
	}

	f, err := os.Create(cfg.Render.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := buf.WriteWAV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	log.Info().
		Str("path", cfg.Render.Output).
		Int("note", cfg.Render.Note).
		Int("frames", buf.Len()).
		Msg("Wrote note")
	return nil
}

func play(cfg *config.Config, s *synth.Synth, log zerolog.Logger) error {
	buf, err := s.Render(cfg.Render.Note, cfg.Render.Velocity, cfg.Render.Options())
	if err != nil {
		return err
	}
	p, err := player.NewOtoPlayer(buf.SampleRate, log)
	if err != nil {
		return err
	}
	defer p.Close()
	return p.Play(buf)
}

func runAudition(ctx context.Context, cfg *config.Config, s *synth.Synth, log zerolog.Logger) error {
	p, err := player.NewOtoPlayer(int(cfg.SampleRate), log)
	if err != nil {
		return err
	}
	a, err := audition.New(cfg.Audition, s, p, os.Stdin, log)
	if err != nil {
		return err
	}
	return a.Start(ctx)
}
