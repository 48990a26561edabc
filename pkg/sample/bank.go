package sample

import "fmt"

// Bank is an immutable keygroup table over a shared mono PCM buffer.
// It is safe for concurrent use by any number of voices.
type Bank struct {
	pcm       []int16
	keygroups []Keygroup
}

// NewBank validates the keygroup table against the PCM buffer and returns a Bank.
//
// Every region must have a guard sample at End+1 because the renderer
// interpolates towards the next sample. High must be strictly increasing and
// the final entry must reach OpenHigh.
func NewBank(pcm []int16, keygroups []Keygroup) (*Bank, error) {
	if len(keygroups) == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrInvalidTable)
	}

	for i := range keygroups {
		kg := &keygroups[i]
		if err := kg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: keygroup %d: %w", ErrInvalidTable, i, err)
		}
		if kg.End+1 >= len(pcm) {
			return nil, fmt.Errorf("%w: keygroup %d: guard sample %d outside PCM buffer of %d samples",
				ErrInvalidTable, i, kg.End+1, len(pcm))
		}
		if i > 0 && kg.High <= keygroups[i-1].High {
			return nil, fmt.Errorf("%w: keygroup %d: high %d does not increase on %d",
				ErrInvalidTable, i, kg.High, keygroups[i-1].High)
		}
	}

	if last := keygroups[len(keygroups)-1]; last.High < OpenHigh {
		return nil, fmt.Errorf("%w: final keygroup high %d is below %d", ErrInvalidTable, last.High, OpenHigh)
	}

	kgs := make([]Keygroup, len(keygroups))
	copy(kgs, keygroups)

	return &Bank{pcm: pcm, keygroups: kgs}, nil
}

// Select returns the first keygroup whose High plus tolerance reaches note.
// A larger tolerance lets a note reuse a sample recorded further below it.
func (b *Bank) Select(note, tolerance int) (Keygroup, error) {
	for _, kg := range b.keygroups {
		if note <= kg.High+tolerance {
			return kg, nil
		}
	}
	return Keygroup{}, fmt.Errorf("%w: note %d with tolerance %d", ErrKeygroupExhausted, note, tolerance)
}

// PCM returns the shared sample buffer. Callers must not modify it.
func (b *Bank) PCM() []int16 {
	return b.pcm
}

// Keygroups returns a copy of the keygroup table.
func (b *Bank) Keygroups() []Keygroup {
	kgs := make([]Keygroup, len(b.keygroups))
	copy(kgs, b.keygroups)
	return kgs
}

// Len returns the number of keygroups.
func (b *Bank) Len() int {
	return len(b.keygroups)
}
