package converter

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Order selects how notes from different tracks are merged
type Order string

const (
	// OrderInterleave sorts all notes by start tick, ties by track index
	OrderInterleave Order = "interleave"
	// OrderConcatenate plays each track to the end before the next one
	OrderConcatenate Order = "concatenate"
)

// ParseOrder parses an ordering policy name
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(s)) {
	case "", OrderInterleave:
		return OrderInterleave, nil
	case OrderConcatenate:
		return OrderConcatenate, nil
	default:
		return "", fmt.Errorf("%w: unknown order %q", ErrInvalidOptions, s)
	}
}

// MIDI note range
const (
	MinNote = 0
	MaxNote = 127
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the name of a MIDI note, e.g. 60 is C4
func NoteName(note int) string {
	octave := note/12 - 1
	idx := note % 12
	if idx < 0 {
		idx += 12
		octave--
	}
	return fmt.Sprintf("%s%d", noteNames[idx], octave)
}

// NoteFrequency returns the equal temperament frequency of a note in Hz,
// anchored at A4 (note 69) = 440 Hz
func NoteFrequency(note int) int {
	return int(math.Round(440.0 * math.Pow(2, float64(note-69)/12.0)))
}

// Timeline converts resolved notes into timed tones
type Timeline struct {
	TempoMap     *TempoMap
	TicksPerBeat uint16
	Order        Order
	Transpose    int
}

// Assembly counts the notes Assemble left out
type Assembly struct {
	Dropped    int // shorter than one millisecond
	OutOfRange int // transposed outside 0-127
}

// Assemble orders notes and maps them to tones
func (tl Timeline) Assemble(notes []ResolvedNote) ([]TimedTone, Assembly) {
	ordered := make([]ResolvedNote, len(notes))
	copy(ordered, notes)

	if tl.Order == OrderConcatenate {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Track < ordered[j].Track
		})
	} else {
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].StartTick != ordered[j].StartTick {
				return ordered[i].StartTick < ordered[j].StartTick
			}
			return ordered[i].Track < ordered[j].Track
		})
	}

	tones := make([]TimedTone, 0, len(ordered))
	var asm Assembly
	for _, n := range ordered {
		note := int(n.Note) + tl.Transpose
		if note < MinNote || note > MaxNote {
			asm.OutOfRange++
			continue
		}
		ms := tl.TempoMap.Milliseconds(n.StartTick, n.EndTick, tl.TicksPerBeat)
		if ms <= 0 {
			asm.Dropped++
			continue
		}
		tones = append(tones, TimedTone{
			Note:       note,
			Frequency:  NoteFrequency(note),
			DurationMs: ms,
		})
	}
	return tones, asm
}
