package converter

import (
	"errors"
	"testing"
)

func TestTempoMapSingleRate(t *testing.T) {
	tm := NewTempoMap(DefaultMicrosecondsPerBeat)

	if got := tm.Milliseconds(0, 480, 480); got != 500 {
		t.Errorf("Milliseconds(0, 480, 480) = %d, want 500", got)
	}
	if got := tm.Microseconds(100, 100, 480); got != 0 {
		t.Errorf("Microseconds of empty span = %d, want 0", got)
	}
	if got := tm.Microseconds(200, 100, 480); got != 0 {
		t.Errorf("Microseconds of reversed span = %d, want 0", got)
	}
}

func TestTempoMapZeroDefault(t *testing.T) {
	tm := NewTempoMap(0)
	bps := tm.Breakpoints()
	if len(bps) != 1 || bps[0].Tick != 0 || bps[0].MicrosecondsPerBeat != DefaultMicrosecondsPerBeat {
		t.Errorf("Breakpoints() = %+v, want single default breakpoint at tick 0", bps)
	}
}

func TestTempoMapRegions(t *testing.T) {
	tm := NewTempoMap(500000)
	if err := tm.Record(480, 250000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	tests := []struct {
		name       string
		start, end int64
		want       int64
	}{
		{"before change", 0, 480, 500000},
		{"after change", 480, 960, 250000},
		{"spanning change", 240, 720, 375000},
		{"ending on change", 240, 480, 250000},
		{"far after change", 4800, 5280, 250000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tm.Microseconds(tt.start, tt.end, 480); got != tt.want {
				t.Errorf("Microseconds(%d, %d) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestTempoMapSpanBetweenRates(t *testing.T) {
	tm := NewTempoMap(500000)
	if err := tm.Record(480, 250000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	slow := NewTempoMap(500000).Milliseconds(240, 720, 480)
	fast := NewTempoMap(250000).Milliseconds(240, 720, 480)
	got := tm.Milliseconds(240, 720, 480)

	if !(fast < got && got < slow) {
		t.Errorf("Milliseconds() = %d, want strictly between %d and %d", got, fast, slow)
	}
}

func TestTempoMapManyRegions(t *testing.T) {
	tm := NewTempoMap(600000)
	for i, uspb := range []uint32{500000, 400000, 300000} {
		if err := tm.Record(int64(i+1)*100, uspb); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	// 50 ticks of each rate at 100 ticks per beat
	want := int64(600000/2 + 500000 + 400000 + 300000/2)
	if got := tm.Microseconds(50, 350, 100); got != want {
		t.Errorf("Microseconds() = %d, want %d", got, want)
	}
}

func TestTempoMapTruncatesPerRegion(t *testing.T) {
	tm := NewTempoMap(500000)
	if err := tm.Record(1, 500000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// each single-tick region is 500000/3 = 166666.66, truncated separately
	if got := tm.Microseconds(0, 2, 3); got != 333332 {
		t.Errorf("Microseconds() = %d, want 333332", got)
	}
}

func TestTempoMapRecord(t *testing.T) {
	tm := NewTempoMap(500000)

	if err := tm.Record(0, 400000); err != nil {
		t.Fatalf("Record() at tick 0 error = %v", err)
	}
	if bps := tm.Breakpoints(); len(bps) != 1 || bps[0].MicrosecondsPerBeat != 400000 {
		t.Errorf("Record() at tick 0 should replace the default, got %+v", bps)
	}

	if err := tm.Record(960, 300000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := tm.Record(960, 200000); err != nil {
		t.Fatalf("Record() at same tick error = %v", err)
	}
	bps := tm.Breakpoints()
	if len(bps) != 2 || bps[1].MicrosecondsPerBeat != 200000 {
		t.Errorf("Breakpoints() = %+v, want 2 with last rate 200000", bps)
	}

	err := tm.Record(480, 500000)
	if !errors.Is(err, ErrOutOfOrderTempoEvent) {
		t.Errorf("Record() before last breakpoint error = %v, want ErrOutOfOrderTempoEvent", err)
	}

	err = tm.Record(1000, 0)
	if !errors.Is(err, ErrInvalidTempo) {
		t.Errorf("Record() zero tempo error = %v, want ErrInvalidTempo", err)
	}
}

func TestTempoMapBreakpointsIsCopy(t *testing.T) {
	tm := NewTempoMap(500000)
	bps := tm.Breakpoints()
	bps[0].MicrosecondsPerBeat = 1

	if got := tm.Breakpoints()[0].MicrosecondsPerBeat; got != 500000 {
		t.Errorf("Breakpoints() leaked internal state, rate = %d", got)
	}
}
