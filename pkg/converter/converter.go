package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/renameio/v2"
)

var (
	// ErrInvalidOptions is returned when conversion options are out of range
	ErrInvalidOptions = errors.New("invalid options")
	// ErrUnknownDialect is returned for an unregistered output dialect
	ErrUnknownDialect = errors.New("unknown dialect")
)

// Format represents a file format
type Format string

const (
	FormatMIDI     Format = "midi"
	FormatGCode    Format = "gcode"
	FormatRouterOS Format = "rsc"
	FormatUnknown  Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	case ".gcode", ".gco", ".g":
		return FormatGCode
	case ".rsc":
		return FormatRouterOS
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	// MIDI file signature "MThd"
	if string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	return FormatUnknown
}

// Options configures a conversion
type Options struct {
	Channel             uint8  // MIDI channel, 0-15
	MicrosecondsPerBeat uint32 // tempo in force until the first tempo event
	GapMs               int    // silence after each tone
	Order               Order
	TempoTrack          int // track whose tempo events drive the tempo map
	Transpose           int // semitones
	Comments            bool
}

// DefaultOptions returns channel 0, 120 BPM, a 30 ms gap and interleaved tracks
func DefaultOptions() Options {
	return Options{
		Channel:             0,
		MicrosecondsPerBeat: DefaultMicrosecondsPerBeat,
		GapMs:               DefaultGapMs,
		Order:               OrderInterleave,
		TempoTrack:          0,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.Channel > 15 {
		return fmt.Errorf("%w: channel %d out of range 0-15", ErrInvalidOptions, o.Channel)
	}
	if o.MicrosecondsPerBeat == 0 {
		return fmt.Errorf("%w: tempo must be positive", ErrInvalidOptions)
	}
	if o.GapMs < 0 {
		return fmt.Errorf("%w: negative gap %d", ErrInvalidOptions, o.GapMs)
	}
	if o.Transpose < MinNote-MaxNote || o.Transpose > MaxNote-MinNote {
		return fmt.Errorf("%w: transpose %d out of range -127..127", ErrInvalidOptions, o.Transpose)
	}
	if o.TempoTrack < 0 {
		return fmt.Errorf("%w: negative tempo track %d", ErrInvalidOptions, o.TempoTrack)
	}
	if _, err := ParseOrder(string(o.Order)); err != nil {
		return err
	}
	return nil
}

// Stats holds per-run diagnostics
type Stats struct {
	Tracks             int `json:"tracks"`
	NoteOns            int `json:"note_ons"`
	Resolved           int `json:"resolved"`
	Unclosed           int `json:"unclosed"`
	UnmatchedOffs      int `json:"unmatched_offs"`
	Retriggered        int `json:"retriggered"`
	IgnoredTempoEvents int `json:"ignored_tempo_events"`
	TempoBreakpoints   int `json:"tempo_breakpoints"`
	Dropped            int `json:"dropped"`
	OutOfRange         int `json:"out_of_range"`
	Tones              int `json:"tones"`
	DurationMs         int `json:"duration_ms"`
}

// Result holds the output of a conversion
type Result struct {
	Tones       []TimedTone
	Commands    []Command
	Breakpoints []Breakpoint
	Program     []byte
	Dialect     string
	Stats       Stats
}

// Empty reports whether no tones were produced
func (r *Result) Empty() bool {
	return len(r.Tones) == 0
}

// Converter turns MIDI songs into tone programs
type Converter struct {
	dialect Dialect
	opts    Options
}

// New creates a new Converter for the dialect
func New(dialect Dialect, opts Options) *Converter {
	return &Converter{dialect: dialect, opts: opts}
}

// GetDialect returns the current dialect
func (c *Converter) GetDialect() Dialect {
	return c.dialect
}

// SetDialect sets the output dialect
func (c *Converter) SetDialect(dialect Dialect) {
	c.dialect = dialect
}

// Options returns the conversion options
func (c *Converter) Options() Options {
	return c.opts
}

// Convert decodes MIDI data and converts it
func (c *Converter) Convert(ctx context.Context, midiData []byte) (*Result, error) {
	song, err := DecodeMIDI(midiData)
	if err != nil {
		return nil, err
	}
	return c.ConvertSong(ctx, song)
}

// ConvertSong converts a decoded song. The tempo map and open-note table
// live only for the duration of the call.
func (c *Converter) ConvertSong(ctx context.Context, song *Song) (*Result, error) {
	if c.dialect == nil {
		return nil, errors.New("no dialect configured")
	}
	if err := c.opts.Validate(); err != nil {
		return nil, err
	}
	if song == nil || song.TicksPerBeat == 0 {
		return nil, fmt.Errorf("%w: zero ticks per beat", ErrMalformedStream)
	}

	logger := log.FromContext(ctx)
	stats := Stats{Tracks: len(song.Tracks)}
	tempo := NewTempoMap(c.opts.MicrosecondsPerBeat)
	pairer := NewNotePairer(c.opts.Channel, &stats, logger)

	if c.opts.TempoTrack >= len(song.Tracks) {
		logger.Warn("tempo track not present, using default tempo", "tempo_track", c.opts.TempoTrack, "tracks", len(song.Tracks))
	}

	for i, track := range song.Tracks {
		var tick int64
		for _, ev := range track.Events {
			tick += int64(ev.Delta)
			if ev.Kind == KindTempoChange {
				if i != c.opts.TempoTrack {
					stats.IgnoredTempoEvents++
					logger.Debug("tempo event outside tempo track", "track", i, "tick", tick)
					continue
				}
				if err := tempo.Record(tick, ev.MicrosecondsPerBeat); err != nil {
					return nil, fmt.Errorf("track %d: %w", i, err)
				}
				continue
			}
			pairer.Feed(i, tick, ev)
		}
		pairer.EndTrack(i)
	}

	timeline := Timeline{
		TempoMap:     tempo,
		TicksPerBeat: song.TicksPerBeat,
		Order:        c.opts.Order,
		Transpose:    c.opts.Transpose,
	}
	tones, asm := timeline.Assemble(pairer.Notes())
	cmds := Emit(tones, c.opts.GapMs)

	stats.Dropped = asm.Dropped
	stats.OutOfRange = asm.OutOfRange
	if asm.OutOfRange > 0 {
		logger.Warn("notes transposed out of MIDI range", "count", asm.OutOfRange, "transpose", c.opts.Transpose)
	}
	stats.Tones = len(tones)
	stats.TempoBreakpoints = len(tempo.Breakpoints())
	for _, cmd := range cmds {
		stats.DurationMs += cmd.DurationMs
	}

	res := &Result{
		Tones:       tones,
		Commands:    cmds,
		Breakpoints: tempo.Breakpoints(),
		Program:     Render(c.dialect, cmds, c.opts.Comments),
		Dialect:     c.dialect.Name(),
		Stats:       stats,
	}
	if res.Empty() {
		logger.Warn("no tones produced", "channel", c.opts.Channel, "note_ons", stats.NoteOns)
	}
	logger.Debug("conversion done", "tones", stats.Tones, "dropped", stats.Dropped, "unclosed", stats.Unclosed, "unmatched", stats.UnmatchedOffs)
	return res, nil
}

// ConvertFile converts inputPath and writes the program to outputPath.
// The output appears atomically or not at all.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if DetectFormat(inputPath) != FormatMIDI && DetectFormatFromContent(data) != FormatMIDI {
		return nil, fmt.Errorf("%w: %s is not a MIDI file", ErrMalformedStream, inputPath)
	}

	res, err := c.Convert(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}
	if err := WriteFileAtomic(outputPath, res.Program); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	return res, nil
}

// WriteFileAtomic writes data to a temp file next to filename, syncs it and
// renames it into place
func WriteFileAtomic(filename string, data []byte) error {
	return renameio.WriteFile(filename, data, 0644)
}
