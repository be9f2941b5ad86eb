package converter

import (
	"sort"

	"github.com/charmbracelet/log"
)

type pairKey struct {
	track int
	note  uint8
}

// NotePairer matches note starts to note stops on a single channel.
// Feed must see each track's events in file order.
type NotePairer struct {
	channel uint8
	open    map[pairKey]int64
	notes   []ResolvedNote
	stats   *Stats
	logger  *log.Logger
}

// NewNotePairer creates a pairer for channel. stats may be nil.
func NewNotePairer(channel uint8, stats *Stats, logger *log.Logger) *NotePairer {
	if stats == nil {
		stats = &Stats{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &NotePairer{
		channel: channel,
		open:    make(map[pairKey]int64),
		stats:   stats,
		logger:  logger,
	}
}

// Feed processes one event at its absolute tick
func (p *NotePairer) Feed(track int, tick int64, ev Event) {
	if ev.Kind != KindNoteOn && ev.Kind != KindNoteOff {
		return
	}
	if ev.Channel != p.channel {
		return
	}
	key := pairKey{track: track, note: ev.Note}

	if ev.Kind == KindNoteOn && ev.Velocity > 0 {
		p.stats.NoteOns++
		if prev, ok := p.open[key]; ok {
			p.stats.Retriggered++
			p.logger.Debug("note retriggered", "track", track, "note", NoteName(int(ev.Note)), "previous", prev, "tick", tick)
		}
		p.open[key] = tick
		return
	}

	start, ok := p.open[key]
	if !ok {
		p.stats.UnmatchedOffs++
		p.logger.Debug("note off without note on", "track", track, "note", NoteName(int(ev.Note)), "tick", tick)
		return
	}
	delete(p.open, key)
	p.notes = append(p.notes, ResolvedNote{
		Note:      ev.Note,
		StartTick: start,
		EndTick:   tick,
		Track:     track,
	})
	p.stats.Resolved++
}

// EndTrack drops every note still open on track
func (p *NotePairer) EndTrack(track int) {
	var dropped []uint8
	for key := range p.open {
		if key.track == track {
			dropped = append(dropped, key.note)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	for _, note := range dropped {
		p.logger.Debug("note never closed", "track", track, "note", NoteName(int(note)), "start", p.open[pairKey{track, note}])
		delete(p.open, pairKey{track, note})
		p.stats.Unclosed++
	}
}

// Notes returns the resolved notes in resolution order
func (p *NotePairer) Notes() []ResolvedNote {
	return p.notes
}

// PairTrack runs a whole track through a fresh pairer
func PairTrack(track Track, index int, channel uint8) []ResolvedNote {
	p := NewNotePairer(channel, nil, nil)
	ticks := track.AbsoluteTicks()
	for i, ev := range track.Events {
		p.Feed(index, ticks[i], ev)
	}
	p.EndTrack(index)
	return p.Notes()
}
