package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// ChannelCount is always stereo.
	ChannelCount = 2
	// BitDepth of the integer output.
	BitDepth = 16

	wavFormatPCM = 1
)

// Buffer holds rendered stereo output as float32 frames.
type Buffer struct {
	Left       []float32
	Right      []float32
	SampleRate int
}

// NewBuffer allocates a silent buffer of n frames.
func NewBuffer(n, sampleRate int) *Buffer {
	return &Buffer{
		Left:       make([]float32, n),
		Right:      make([]float32, n),
		SampleRate: sampleRate,
	}
}

func (b *Buffer) truncate(n int) {
	b.Left = b.Left[:n]
	b.Right = b.Right[:n]
}

// Len returns the number of frames.
func (b *Buffer) Len() int {
	return len(b.Left)
}

// Peak returns the largest absolute sample value over both channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for i := range b.Left {
		peak = max(peak, abs32(b.Left[i]), abs32(b.Right[i]))
	}
	return peak
}

func abs32(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

// Int16 returns interleaved 16-bit samples scaled so the peak reaches full
// scale. A silent buffer stays silent.
func (b *Buffer) Int16() []int16 {
	out := make([]int16, len(b.Left)*ChannelCount)
	peak := b.Peak()
	if peak == 0 {
		return out
	}
	scale := 32767 / float64(peak)
	for i := range b.Left {
		out[i*ChannelCount] = int16(float64(b.Left[i]) * scale)
		out[i*ChannelCount+1] = int16(float64(b.Right[i]) * scale)
	}
	return out
}

// Bytes returns the normalized output as little-endian signed 16-bit PCM.
func (b *Buffer) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, b.Int16()); err != nil {
		return nil, fmt.Errorf("failed to write audio data to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteWAV encodes the normalized output as a 16-bit stereo WAV file.
func (b *Buffer) WriteWAV(w io.WriteSeeker) error {
	samples := b.Int16()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, b.SampleRate, BitDepth, ChannelCount, wavFormatPCM)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: ChannelCount,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}
