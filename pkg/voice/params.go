package voice

import (
	"fmt"
	"strings"
)

// Params holds the normalized (0..1) tonal knobs of the instrument.
type Params struct {
	Decay          float64 `toml:"decay"`            // Envelope decay length
	Release        float64 `toml:"release"`          // Envelope release length
	Hardness       float64 `toml:"hardness"`         // Keygroup offset
	VelToHardness  float64 `toml:"vel_to_hardness"`  // Velocity reach into wider keygroups
	Muffle         float64 `toml:"muffle"`           // Muffle filter base
	VelToMuffle    float64 `toml:"vel_to_muffle"`    // Velocity opening of the muffle filter
	VelSensitivity float64 `toml:"vel_sensitivity"`  // Velocity to level curve
	StereoWidth    float64 `toml:"stereo_width"`     // Pan spread and comb depth
	FineTune       float64 `toml:"fine_tune"`        // 0.5 is concert pitch
	RandomDetune   float64 `toml:"random_detune"`    // Per-note pseudo-random detune
	StretchTune    float64 `toml:"stretch_tune"`     // Upper register stretch, 0.5 is none
}

// Validate checks that every knob lies in [0, 1].
func (p *Params) Validate() error {
	knobs := []struct {
		name string
		v    float64
	}{
		{"decay", p.Decay},
		{"release", p.Release},
		{"hardness", p.Hardness},
		{"vel_to_hardness", p.VelToHardness},
		{"muffle", p.Muffle},
		{"vel_to_muffle", p.VelToMuffle},
		{"vel_sensitivity", p.VelSensitivity},
		{"stereo_width", p.StereoWidth},
		{"fine_tune", p.FineTune},
		{"random_detune", p.RandomDetune},
		{"stretch_tune", p.StretchTune},
	}
	for _, k := range knobs {
		if !(k.v >= 0 && k.v <= 1) {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %f", k.name, k.v)
		}
	}
	return nil
}

// Program is a named factory preset.
type Program struct {
	Name   string
	Params Params
}

// Programs are the factory presets. The first one is the default.
var Programs = []Program{
	{"mda Piano", Params{0.500, 0.500, 0.500, 0.5, 0.803, 0.251, 0.376, 0.500, 0.500, 0.246, 0.500}},
	{"Plain Piano", Params{0.500, 0.500, 0.500, 0.5, 0.751, 0.000, 0.452, 0.000, 0.500, 0.000, 0.500}},
	{"Compressed Piano", Params{0.902, 0.399, 0.623, 0.5, 1.000, 0.331, 0.299, 0.499, 0.500, 0.000, 0.500}},
	{"Dance Piano", Params{0.399, 0.251, 1.000, 0.5, 0.672, 0.124, 0.127, 0.249, 0.500, 0.283, 0.667}},
	{"Concert Piano", Params{0.648, 0.500, 0.500, 0.5, 0.298, 0.602, 0.550, 0.850, 0.500, 0.339, 0.660}},
	{"Dark Piano", Params{0.500, 0.602, 0.000, 0.5, 0.304, 0.200, 0.336, 0.651, 0.500, 0.317, 0.500}},
	{"School Piano", Params{0.450, 0.598, 0.626, 0.5, 0.603, 0.500, 0.174, 0.331, 0.500, 0.421, 0.801}},
	{"Broken Piano", Params{0.050, 0.957, 0.500, 0.5, 0.299, 1.000, 0.000, 0.500, 0.450, 0.718, 0.000}},
}

// DefaultParams returns the knobs of the first program.
func DefaultParams() Params {
	return Programs[0].Params
}

// LookupProgram finds a program by case-insensitive name.
func LookupProgram(name string) (Params, bool) {
	for _, p := range Programs {
		if strings.EqualFold(p.Name, name) {
			return p.Params, true
		}
	}
	return Params{}, false
}
