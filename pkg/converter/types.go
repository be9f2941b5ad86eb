// Package converter turns Standard MIDI Files into timed tone programs for
// machine controllers (3D printer beepers, router speakers).
package converter

// EventKind classifies a decoded MIDI event
type EventKind uint8

const (
	KindOther EventKind = iota
	KindNoteOn
	KindNoteOff
	KindTempoChange
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindTempoChange:
		return "tempo"
	default:
		return "other"
	}
}

// Event is a single decoded MIDI event
type Event struct {
	Kind                EventKind
	Channel             uint8  // 0-15, note events only
	Note                uint8  // 0-127, note events only
	Velocity            uint8  // 0-127, note events only
	MicrosecondsPerBeat uint32 // tempo events only
	Delta               uint32 // ticks since the previous event in the track
}

// NoteOn returns a note on event
func NoteOn(delta uint32, channel, note, velocity uint8) Event {
	return Event{Kind: KindNoteOn, Channel: channel, Note: note, Velocity: velocity, Delta: delta}
}

// NoteOff returns a note off event
func NoteOff(delta uint32, channel, note uint8) Event {
	return Event{Kind: KindNoteOff, Channel: channel, Note: note, Delta: delta}
}

// Tempo returns a tempo change event
func Tempo(delta uint32, microsecondsPerBeat uint32) Event {
	return Event{Kind: KindTempoChange, MicrosecondsPerBeat: microsecondsPerBeat, Delta: delta}
}

// Other returns an event that only advances time
func Other(delta uint32) Event {
	return Event{Kind: KindOther, Delta: delta}
}

// Track is an ordered list of events sharing one tick timeline
type Track struct {
	Name   string
	Events []Event
}

// AbsoluteTicks returns the absolute tick of every event in the track
func (t Track) AbsoluteTicks() []int64 {
	ticks := make([]int64, len(t.Events))
	var abs int64
	for i, ev := range t.Events {
		abs += int64(ev.Delta)
		ticks[i] = abs
	}
	return ticks
}

// Song is a decoded MIDI file
type Song struct {
	TicksPerBeat uint16
	Tracks       []Track
}

// ResolvedNote is a matched note on/off pair
type ResolvedNote struct {
	Note      uint8
	StartTick int64
	EndTick   int64
	Track     int
}

// TimedTone is a tone ready for emission
type TimedTone struct {
	Note       int // MIDI note after transposition
	Frequency  int // Hz
	DurationMs int
}
