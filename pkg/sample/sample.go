package sample

import (
	"errors"
	"fmt"
)

// OpenHigh is the high note of the final keygroup. It stands in for an
// unbounded upper edge so that every note finds a keygroup.
const OpenHigh = 999

var (
	// ErrKeygroupExhausted means no keygroup covers the requested note.
	ErrKeygroupExhausted = errors.New("no keygroup covers note")
	// ErrInvalidTable is returned by NewBank for a malformed keygroup table.
	ErrInvalidTable = errors.New("invalid keygroup table")
)

// Keygroup maps a range of notes onto one looped region of the shared PCM buffer.
type Keygroup struct {
	Root int `toml:"root"` // Note the region was recorded at
	High int `toml:"high"` // Highest note served before falling to the next keygroup
	Pos  int `toml:"pos"`  // First sample of the region
	End  int `toml:"end"`  // Last sample played before the loop wraps
	Loop int `toml:"loop"` // Length subtracted from the play position on wraparound
}

// Validate checks the keygroup on its own. Table-level checks live in NewBank.
func (k *Keygroup) Validate() error {
	if k.Pos < 0 {
		return fmt.Errorf("pos cannot be negative, got %d", k.Pos)
	}
	if k.Pos > k.End {
		return fmt.Errorf("pos %d is past end %d", k.Pos, k.End)
	}
	if k.Loop <= 0 {
		return fmt.Errorf("loop must be positive, got %d", k.Loop)
	}
	if k.Loop > k.End-k.Pos {
		return fmt.Errorf("loop %d is longer than the region (%d samples)", k.Loop, k.End-k.Pos)
	}
	return nil
}

// DefaultKeygroups returns the fifteen-region piano table.
func DefaultKeygroups() []Keygroup {
	return []Keygroup{
		{Root: 36, High: 37, Pos: 0, End: 36275, Loop: 14774},
		{Root: 40, High: 41, Pos: 36278, End: 83135, Loop: 16268},
		{Root: 43, High: 45, Pos: 83137, End: 146756, Loop: 33541},
		{Root: 48, High: 49, Pos: 146758, End: 204997, Loop: 21156},
		{Root: 52, High: 53, Pos: 204999, End: 244908, Loop: 17191},
		{Root: 55, High: 57, Pos: 244910, End: 290978, Loop: 23286},
		{Root: 60, High: 61, Pos: 290980, End: 342948, Loop: 18002},
		{Root: 64, High: 65, Pos: 342950, End: 391750, Loop: 19746},
		{Root: 67, High: 69, Pos: 391752, End: 436915, Loop: 22253},
		{Root: 72, High: 73, Pos: 436917, End: 468807, Loop: 8852},
		{Root: 76, High: 77, Pos: 468809, End: 492772, Loop: 9693},
		{Root: 79, High: 81, Pos: 492774, End: 532293, Loop: 10596},
		{Root: 84, High: 85, Pos: 532295, End: 560192, Loop: 6011},
		{Root: 88, High: 89, Pos: 560194, End: 574121, Loop: 3414},
		{Root: 93, High: OpenHigh, Pos: 574123, End: 586343, Loop: 2399},
	}
}
