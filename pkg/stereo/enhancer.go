// Package stereo implements the comb-delay stereo simulator applied to the
// summed output of the synthesizer.
package stereo

import (
	"errors"
	"fmt"
)

// MaxSize is the largest comb buffer the enhancer is used with.
const MaxSize = 256

// ErrSize is returned for a buffer size that is not a positive power of two.
var ErrSize = errors.New("comb size must be a positive power of two")

// Enhancer adds synthetic stereo width by cross-feeding a delayed copy of
// the mono sum into both channels with opposite signs.
type Enhancer struct {
	comb  []float32
	mask  int
	pos   int
	depth float32
}

// New creates an enhancer with a comb of size samples and the given depth.
func New(size int, depth float32) (*Enhancer, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrSize, size)
	}
	return &Enhancer{
		comb:  make([]float32, size),
		mask:  size - 1,
		depth: depth,
	}, nil
}

// SizeForRate returns the comb length used at the given sample rate.
// Rates above 64 kHz get twice the delay so the effect keeps its width in time.
func SizeForRate(sampleRate float64) int {
	if sampleRate > 64000 {
		return MaxSize
	}
	return MaxSize / 2
}

// Process stores l+r, advances the cursor and cross-feeds the value found
// there, which is the sum written size samples ago.
func (e *Enhancer) Process(l, r float32) (float32, float32) {
	e.comb[e.pos] = l + r
	e.pos = (e.pos + 1) & e.mask
	x := e.depth * e.comb[e.pos]
	return l + x, r - x
}

// Reset clears the delay line.
func (e *Enhancer) Reset() {
	clear(e.comb)
	e.pos = 0
}

// Depth returns the cross-feed depth.
func (e *Enhancer) Depth() float32 { return e.depth }

// Size returns the comb length in samples.
func (e *Enhancer) Size() int { return len(e.comb) }
