package converter

import (
	"errors"
	"fmt"
)

// DefaultMicrosecondsPerBeat is 120 BPM
const DefaultMicrosecondsPerBeat = 500000

var (
	// ErrOutOfOrderTempoEvent is returned when a tempo change lands before the last breakpoint
	ErrOutOfOrderTempoEvent = errors.New("out of order tempo event")
	// ErrInvalidTempo is returned for a zero microseconds-per-beat rate
	ErrInvalidTempo = errors.New("invalid tempo")
)

// Breakpoint is a point in tick time from which a tempo applies
type Breakpoint struct {
	Tick                int64
	MicrosecondsPerBeat uint32
}

// TempoMap maps ticks to wall-clock time across tempo changes.
// Breakpoints are strictly increasing in tick, the first one is always at tick 0.
type TempoMap struct {
	points []Breakpoint
}

// NewTempoMap creates a map with a single breakpoint at tick 0
func NewTempoMap(microsecondsPerBeat uint32) *TempoMap {
	if microsecondsPerBeat == 0 {
		microsecondsPerBeat = DefaultMicrosecondsPerBeat
	}
	return &TempoMap{points: []Breakpoint{{Tick: 0, MicrosecondsPerBeat: microsecondsPerBeat}}}
}

// Record adds a tempo change at tick. A change at the tick of the last
// breakpoint replaces its rate.
func (m *TempoMap) Record(tick int64, microsecondsPerBeat uint32) error {
	if microsecondsPerBeat == 0 {
		return fmt.Errorf("%w: zero microseconds per beat at tick %d", ErrInvalidTempo, tick)
	}
	last := &m.points[len(m.points)-1]
	switch {
	case tick < last.Tick:
		return fmt.Errorf("%w: tick %d before breakpoint at tick %d", ErrOutOfOrderTempoEvent, tick, last.Tick)
	case tick == last.Tick:
		last.MicrosecondsPerBeat = microsecondsPerBeat
	default:
		m.points = append(m.points, Breakpoint{Tick: tick, MicrosecondsPerBeat: microsecondsPerBeat})
	}
	return nil
}

// Microseconds integrates the duration of [start, end) across every tempo
// region it touches. Each region's share is truncated to whole microseconds.
func (m *TempoMap) Microseconds(start, end int64, ticksPerBeat uint16) int64 {
	if end <= start || ticksPerBeat == 0 {
		return 0
	}
	var total int64
	for i, bp := range m.points {
		regionEnd := int64(-1)
		if i+1 < len(m.points) {
			regionEnd = m.points[i+1].Tick
		}
		if regionEnd >= 0 && regionEnd <= start {
			continue
		}
		if bp.Tick >= end {
			break
		}
		from := max(start, bp.Tick)
		to := end
		if regionEnd >= 0 {
			to = min(end, regionEnd)
		}
		total += (to - from) * int64(bp.MicrosecondsPerBeat) / int64(ticksPerBeat)
	}
	return total
}

// Milliseconds is Microseconds truncated to whole milliseconds
func (m *TempoMap) Milliseconds(start, end int64, ticksPerBeat uint16) int {
	return int(m.Microseconds(start, end, ticksPerBeat) / 1000)
}

// Breakpoints returns a copy of the recorded breakpoints
func (m *TempoMap) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(m.points))
	copy(out, m.points)
	return out
}
