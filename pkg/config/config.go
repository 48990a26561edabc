package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"

	"github.com/hiway/samplepiano/pkg/pcm"
	"github.com/hiway/samplepiano/pkg/sample"
	"github.com/hiway/samplepiano/pkg/synth"
	"github.com/hiway/samplepiano/pkg/voice"
)

// FileName is the configuration file looked up in the standard locations.
const FileName = "samplepiano.toml"

// PCM locates the sample data the keygroups index into.
type PCM struct {
	Path   string `toml:"path"`
	Format string `toml:"format"` // "text" or "wav"; empty guesses from the extension
}

// Render describes an offline render of one note.
type Render struct {
	Note          int     `toml:"note"`
	Velocity      float64 `toml:"velocity"`
	Samples       int     `toml:"samples"`
	Output        string  `toml:"output"`
	ReleaseAfter  int     `toml:"release_after"` // Frames before key up, 0 holds the key
	Sustain       bool    `toml:"sustain"`
	SustainFor    int     `toml:"sustain_for"` // Frames the pedal stays down after key up
	StopOnSilence bool    `toml:"stop_on_silence"`
}

// Validate checks the render section.
func (r *Render) Validate() error {
	if r.Velocity < 0 {
		return fmt.Errorf("velocity cannot be negative, got %f", r.Velocity)
	}
	if r.Output == "" {
		return errors.New("output path cannot be empty")
	}
	opts := r.Options()
	return opts.Validate()
}

// Options converts the section into synth render options.
func (r *Render) Options() synth.RenderOptions {
	return synth.RenderOptions{
		Samples:       r.Samples,
		ReleaseAfter:  r.ReleaseAfter,
		Sustain:       r.Sustain,
		SustainFor:    r.SustainFor,
		StopOnSilence: r.StopOnSilence,
	}
}

// Audition configures the interactive keyboard session.
type Audition struct {
	BaseNote    int     `toml:"base_note"` // Note played by the lowest key
	Velocity    float64 `toml:"velocity"`
	Samples     int     `toml:"samples"` // Longest a single note may ring
	QueueLength int     `toml:"queue_length"`
}

// Validate checks the audition section.
func (a *Audition) Validate() error {
	if a.Velocity < 0 {
		return fmt.Errorf("velocity cannot be negative, got %f", a.Velocity)
	}
	if a.Samples <= 0 {
		return fmt.Errorf("samples must be positive, got %d", a.Samples)
	}
	if a.QueueLength < 0 {
		return errors.New("queue_length cannot be negative")
	}
	if a.QueueLength == 0 {
		a.QueueLength = 1 // Default to 1 if not specified
	}
	return nil
}

// Config holds the complete instrument configuration.
type Config struct {
	Debug      bool     `toml:"debug"`
	SampleRate float64  `toml:"sample_rate"`
	SourceRate float64  `toml:"source_rate"`
	Volume     float64  `toml:"volume"`
	ModWheel   *float64 `toml:"mod_wheel"` // Unset keeps the default muff

	// Program selects a factory preset; Params overrides individual knobs.
	Program string       `toml:"program"`
	Params  voice.Params `toml:"params"`

	PCM       PCM               `toml:"pcm"`
	Keygroups []sample.Keygroup `toml:"keygroups"`
	Render    Render            `toml:"render"`
	Audition  Audition          `toml:"audition"`

	overrides map[string]float64
}

// Default returns the built-in configuration: the default program, the
// piano keygroup table and middle C at velocity ~100 for one second.
func Default() *Config {
	return &Config{
		SampleRate: voice.DefaultSampleRate,
		SourceRate: voice.DefaultSourceRate,
		Volume:     voice.DefaultVolume,
		Program:    voice.Programs[0].Name,
		Params:     voice.DefaultParams(),
		PCM:        PCM{Path: "pdata.txt"},
		Keygroups:  sample.DefaultKeygroups(),
		Render: Render{
			Note:     60,
			Velocity: 0.785714269 * 127,
			Samples:  44100,
			Output:   "output.wav",
		},
		Audition: Audition{
			BaseNote:    48,
			Velocity:    100,
			Samples:     2 * 44100,
			QueueLength: 1,
		},
		overrides: map[string]float64{},
	}
}

// Load reads and validates configuration from a TOML file on top of the defaults.
func Load(path string, log zerolog.Logger) (*Config, error) {
	cfg := Default()
	if err := cfg.decodeFile(path, log); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	log.Debug().Msg("Configuration loaded and validated successfully")
	return cfg, nil
}

// LoadLayered merges every existing file of SearchPaths followed by extra,
// later files overriding earlier ones. Missing files are skipped.
func LoadLayered(log zerolog.Logger, extra ...string) (*Config, error) {
	cfg := Default()
	for _, path := range append(SearchPaths(log), extra...) {
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("Error checking config file")
			}
			continue
		}
		if err := cfg.decodeFile(path, log); err != nil {
			return nil, err
		}
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths returns the standard config locations in increasing priority:
// system wide, the XDG user directory, then the working directory.
func SearchPaths(log zerolog.Logger) []string {
	paths := []string{"/usr/local/etc/" + FileName}

	if p, err := xdg.SearchConfigFile("samplepiano/" + FileName); err == nil {
		paths = append(paths, p)
	} else {
		log.Trace().Err(err).Msg("No user config file")
	}

	return append(paths, "./"+FileName)
}

func (c *Config) decodeFile(path string, log zerolog.Logger) error {
	log.Debug().Str("path", path).Msg("Loading configuration file")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// A keygroup table replaces the previous one as a whole; decoding into
	// the old slice would fill missing fields from stale entries.
	prev := c.Keygroups
	c.Keygroups = nil

	md, err := toml.Decode(string(data), c)
	if !md.IsDefined("keygroups") {
		c.Keygroups = prev
	}
	if err != nil {
		return fmt.Errorf("failed to parse TOML in %s: %w", path, err)
	}

	// Knobs present in this file are remembered so that a program selected
	// by a later file does not discard them.
	for _, k := range knobTable(&c.Params) {
		if md.IsDefined("params", k.key) {
			c.overrides[k.key] = *k.v
		}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("path", path).Interface("keys", undecoded).Msg("Ignoring unknown configuration keys")
	}
	return nil
}

// resolve applies the selected program and knob overrides, then validates.
func (c *Config) resolve() error {
	params, ok := voice.LookupProgram(c.Program)
	if !ok {
		return fmt.Errorf("unknown program %q", c.Program)
	}
	for _, k := range knobTable(&params) {
		if v, ok := c.overrides[k.key]; ok {
			*k.v = v
		}
	}
	c.Params = params
	return c.Validate()
}

// SelectProgram switches to the named program, keeping knobs set by files.
func (c *Config) SelectProgram(name string) error {
	prev := c.Program
	c.Program = name
	if err := c.resolve(); err != nil {
		c.Program = prev
		return err
	}
	return nil
}

type knob struct {
	key string
	v   *float64
}

func knobTable(p *voice.Params) []knob {
	return []knob{
		{"decay", &p.Decay},
		{"release", &p.Release},
		{"hardness", &p.Hardness},
		{"vel_to_hardness", &p.VelToHardness},
		{"muffle", &p.Muffle},
		{"vel_to_muffle", &p.VelToMuffle},
		{"vel_sensitivity", &p.VelSensitivity},
		{"stereo_width", &p.StereoWidth},
		{"fine_tune", &p.FineTune},
		{"random_detune", &p.RandomDetune},
		{"stretch_tune", &p.StretchTune},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if !(c.SampleRate > 0) {
		return fmt.Errorf("sample_rate must be positive, got %f", c.SampleRate)
	}
	if !(c.SourceRate > 0) {
		return fmt.Errorf("source_rate must be positive, got %f", c.SourceRate)
	}
	if c.Volume < 0 {
		return fmt.Errorf("volume cannot be negative, got %f", c.Volume)
	}
	if c.ModWheel != nil && (*c.ModWheel < 0 || *c.ModWheel > 127) {
		return fmt.Errorf("mod_wheel must be between 0 and 127, got %f", *c.ModWheel)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if len(c.Keygroups) == 0 {
		return errors.New("keygroups cannot be empty")
	}
	for i := range c.Keygroups {
		if err := c.Keygroups[i].Validate(); err != nil {
			return fmt.Errorf("invalid keygroup %d: %w", i, err)
		}
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("invalid render section: %w", err)
	}
	if err := c.Audition.Validate(); err != nil {
		return fmt.Errorf("invalid audition section: %w", err)
	}
	return nil
}

// Tone derives the tonal constants from the resolved configuration.
func (c *Config) Tone() voice.Tone {
	muff := voice.DefaultMuff
	if c.ModWheel != nil {
		muff = voice.ModWheelMuff(*c.ModWheel)
	}
	t := voice.NewTone(c.Params, c.SampleRate, muff)
	t.SourceRate = c.SourceRate
	t.Volume = c.Volume
	return t
}

// Bank loads the PCM data and builds the sample bank.
func (c *Config) Bank(log zerolog.Logger) (*sample.Bank, error) {
	data, err := pcm.Load(c.PCM.Path, pcm.Format(c.PCM.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to load pcm: %w", err)
	}
	log.Debug().Str("path", c.PCM.Path).Int("samples", len(data)).Msg("Loaded PCM data")

	bank, err := sample.NewBank(data, c.Keygroups)
	if err != nil {
		return nil, fmt.Errorf("failed to build sample bank: %w", err)
	}
	return bank, nil
}
