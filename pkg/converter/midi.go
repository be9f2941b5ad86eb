package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var (
	// ErrMalformedStream is returned when the MIDI data cannot be decoded
	ErrMalformedStream = errors.New("malformed MIDI stream")
	// ErrUnsupportedTimeFormat is returned for SMPTE timed files
	ErrUnsupportedTimeFormat = errors.New("unsupported MIDI time format")
)

// ReadMIDIFile reads and decodes a MIDI file
func ReadMIDIFile(filename string) (*Song, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return DecodeMIDI(data)
}

// DecodeMIDI decodes Standard MIDI File data into a Song
func DecodeMIDI(data []byte) (*Song, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTimeFormat, s.TimeFormat)
	}
	if mt.Resolution() == 0 {
		return nil, fmt.Errorf("%w: zero ticks per beat", ErrMalformedStream)
	}

	song := &Song{
		TicksPerBeat: mt.Resolution(),
		Tracks:       make([]Track, 0, len(s.Tracks)),
	}
	for _, track := range s.Tracks {
		t := Track{Events: make([]Event, 0, len(track))}
		for _, ev := range track {
			var name string
			if t.Name == "" && ev.Message.GetMetaTrackName(&name) {
				t.Name = name
			}
			e := decodeMessage(ev.Message)
			e.Delta = ev.Delta
			t.Events = append(t.Events, e)
		}
		song.Tracks = append(song.Tracks, t)
	}
	return song, nil
}

// decodeMessage classifies a raw track message
func decodeMessage(msg smf.Message) Event {
	// Tempo meta message: FF 51 03 tt tt tt
	if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
		uspb := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
		return Event{Kind: KindTempoChange, MicrosecondsPerBeat: uspb}
	}

	// Note On: 0x9n nn vv, Note Off: 0x8n nn vv
	if len(msg) >= 3 {
		status := msg[0]
		switch status & 0xF0 {
		case 0x90:
			return Event{Kind: KindNoteOn, Channel: status & 0x0F, Note: msg[1] & 0x7F, Velocity: msg[2] & 0x7F}
		case 0x80:
			return Event{Kind: KindNoteOff, Channel: status & 0x0F, Note: msg[1] & 0x7F, Velocity: msg[2] & 0x7F}
		}
	}
	return Event{Kind: KindOther}
}

// Preview resolution: one tick per millisecond at 60 BPM
const (
	previewTicksPerBeat = 1000
	previewBPM          = 60.0
	previewVelocity     = 100
)

// RenderPreview writes tones back out as a monophonic MIDI file so the
// program can be auditioned before it is sent to a machine. Tones outside
// the MIDI note range become rests.
func RenderPreview(tones []TimedTone, gapMs int) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(previewTicksPerBeat)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("midi2gcode preview"))
	track.Add(0, smf.MetaTempo(previewBPM))

	var pending uint32
	for _, t := range tones {
		if t.Note < 0 || t.Note > 127 {
			pending += uint32(t.DurationMs)
		} else {
			track.Add(pending, midi.NoteOn(0, uint8(t.Note), previewVelocity))
			track.Add(uint32(t.DurationMs), midi.NoteOff(0, uint8(t.Note)))
			pending = 0
		}
		if gapMs > 0 {
			pending += uint32(gapMs)
		}
	}
	track.Close(pending)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}
