// Package pcm loads the mono 16-bit sample data a bank is built on.
package pcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
)

// Format names a PCM source file format.
type Format string

const (
	// FormatText is a comma separated list of signed integers.
	FormatText Format = "text"
	// FormatWAV is a mono 16-bit WAV file.
	FormatWAV Format = "wav"
)

// ErrRange is returned for a sample that does not fit in 16 bits.
var ErrRange = errors.New("sample out of 16-bit range")

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return FormatWAV
	}
	return FormatText
}

// Load reads samples from path in the given format. An empty format is
// guessed from the extension.
func Load(path string, format Format) ([]int16, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	switch format {
	case FormatText:
		return LoadText(path)
	case FormatWAV:
		return LoadWAV(path)
	default:
		return nil, fmt.Errorf("unknown pcm format %q", format)
	}
}

// LoadText reads a comma separated integer file.
func LoadText(path string) ([]int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm file: %w", err)
	}
	return ParseText(data)
}

// ParseText parses comma separated signed integers. Whitespace around
// values and a trailing comma are allowed.
func ParseText(data []byte) ([]int16, error) {
	fields := bytes.Split(data, []byte{','})
	out := make([]int16, 0, len(fields))
	for i, f := range fields {
		f = bytes.TrimSpace(f)
		if len(f) == 0 {
			if i == len(fields)-1 {
				break
			}
			return nil, fmt.Errorf("empty value at index %d", i)
		}
		v, err := strconv.Atoi(string(f))
		if err != nil {
			return nil, fmt.Errorf("invalid value at index %d: %w", i, err)
		}
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("%w: %d at index %d", ErrRange, v, i)
		}
		out = append(out, int16(v))
	}
	return out, nil
}

// LoadWAV reads a mono 16-bit WAV file.
func LoadWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes a mono 16-bit WAV stream.
func DecodeWAV(r io.ReadSeeker) ([]int16, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if dec.NumChans != 1 {
		return nil, fmt.Errorf("wav must be mono, got %d channels", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("wav must be 16-bit, got %d", dec.BitDepth)
	}

	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int16(v)
	}
	return out, nil
}
