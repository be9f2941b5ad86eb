package converter

import (
	"testing"
)

func TestPairTrack(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   []ResolvedNote
	}{
		{
			name: "simple note",
			events: []Event{
				NoteOn(0, 0, 60, 100),
				NoteOff(480, 0, 60),
			},
			want: []ResolvedNote{{Note: 60, StartTick: 0, EndTick: 480}},
		},
		{
			name: "note on with zero velocity closes",
			events: []Event{
				NoteOn(10, 0, 62, 90),
				NoteOn(20, 0, 62, 0),
			},
			want: []ResolvedNote{{Note: 62, StartTick: 10, EndTick: 30}},
		},
		{
			name: "retrigger keeps latest start",
			events: []Event{
				NoteOn(0, 0, 60, 100),
				NoteOn(10, 0, 60, 100),
				NoteOff(10, 0, 60),
			},
			want: []ResolvedNote{{Note: 60, StartTick: 10, EndTick: 20}},
		},
		{
			name: "unmatched off",
			events: []Event{
				NoteOff(0, 0, 62),
			},
			want: nil,
		},
		{
			name: "unclosed note",
			events: []Event{
				NoteOn(0, 0, 64, 100),
			},
			want: nil,
		},
		{
			name: "other channel ignored but advances time",
			events: []Event{
				NoteOn(0, 1, 60, 100),
				NoteOn(100, 0, 67, 100),
				NoteOff(50, 1, 60),
				Other(50),
				NoteOff(0, 0, 67),
			},
			want: []ResolvedNote{{Note: 67, StartTick: 100, EndTick: 200}},
		},
		{
			name: "overlapping notes resolve in off order",
			events: []Event{
				NoteOn(0, 0, 60, 100),
				NoteOn(10, 0, 64, 100),
				NoteOff(10, 0, 64),
				NoteOff(10, 0, 60),
			},
			want: []ResolvedNote{
				{Note: 64, StartTick: 10, EndTick: 20},
				{Note: 60, StartTick: 0, EndTick: 30},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PairTrack(Track{Events: tt.events}, 0, 0)
			if len(got) != len(tt.want) {
				t.Fatalf("PairTrack() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("note %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNotePairerStats(t *testing.T) {
	var stats Stats
	p := NewNotePairer(0, &stats, nil)

	track := Track{Events: []Event{
		NoteOn(0, 0, 60, 100),
		NoteOn(10, 0, 60, 100),
		NoteOff(10, 0, 60),
		NoteOff(0, 0, 61),
		NoteOn(0, 0, 62, 100),
		NoteOn(0, 0, 63, 100),
	}}
	for i, tick := range track.AbsoluteTicks() {
		p.Feed(0, tick, track.Events[i])
	}
	p.EndTrack(0)

	if stats.NoteOns != 4 {
		t.Errorf("NoteOns = %d, want 4", stats.NoteOns)
	}
	if stats.Resolved != 1 {
		t.Errorf("Resolved = %d, want 1", stats.Resolved)
	}
	if stats.Retriggered != 1 {
		t.Errorf("Retriggered = %d, want 1", stats.Retriggered)
	}
	if stats.UnmatchedOffs != 1 {
		t.Errorf("UnmatchedOffs = %d, want 1", stats.UnmatchedOffs)
	}
	if stats.Unclosed != 2 {
		t.Errorf("Unclosed = %d, want 2", stats.Unclosed)
	}
}

func TestNotePairerTracksAreIndependent(t *testing.T) {
	p := NewNotePairer(0, nil, nil)

	// a note opened on track 0 must not be closed by track 1
	p.Feed(0, 0, NoteOn(0, 0, 60, 100))
	p.Feed(1, 50, NoteOff(50, 0, 60))
	p.EndTrack(1)
	p.Feed(0, 100, NoteOff(100, 0, 60))
	p.EndTrack(0)

	notes := p.Notes()
	if len(notes) != 1 {
		t.Fatalf("Notes() = %+v, want 1 note", notes)
	}
	if notes[0].Track != 0 || notes[0].EndTick != 100 {
		t.Errorf("note = %+v, want track 0 ending at 100", notes[0])
	}
}

func TestNotePairerEndTrackOnlyDropsThatTrack(t *testing.T) {
	var stats Stats
	p := NewNotePairer(0, &stats, nil)

	p.Feed(0, 0, NoteOn(0, 0, 60, 100))
	p.Feed(1, 0, NoteOn(0, 0, 60, 100))
	p.EndTrack(1)
	p.Feed(0, 10, NoteOff(10, 0, 60))

	if len(p.Notes()) != 1 {
		t.Errorf("Notes() = %d, want 1", len(p.Notes()))
	}
	if stats.Unclosed != 1 {
		t.Errorf("Unclosed = %d, want 1", stats.Unclosed)
	}
}

func TestTrackAbsoluteTicks(t *testing.T) {
	track := Track{Events: []Event{Other(0), Other(10), Other(0), Other(5)}}
	want := []int64{0, 10, 10, 15}

	got := track.AbsoluteTicks()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AbsoluteTicks()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
