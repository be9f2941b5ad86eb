package dialects

import (
	"errors"
	"strings"
	"testing"

	"github.com/james-see/midi2gcode/pkg/converter"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "marlin"},
		{"marlin", "marlin"},
		{"GCODE", "marlin"},
		{"mikrotik", "mikrotik"},
		{"routeros", "mikrotik"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Get(tt.name)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.name, err)
			}
			if d.Name() != tt.want {
				t.Errorf("Get(%q).Name() = %q, want %q", tt.name, d.Name(), tt.want)
			}
		})
	}

	if _, err := Get("klipper"); !errors.Is(err, converter.ErrUnknownDialect) {
		t.Errorf("Get(klipper) error = %v, want ErrUnknownDialect", err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "marlin" || names[1] != "mikrotik" {
		t.Errorf("Names() = %v, want [marlin mikrotik]", names)
	}
}

var program = converter.Emit([]converter.TimedTone{
	{Note: 69, Frequency: 440, DurationMs: 500},
	{Note: 72, Frequency: 523, DurationMs: 250},
}, 30)

func TestMarlinRender(t *testing.T) {
	m := NewMarlin()

	got := string(converter.Render(m, program, false))
	want := strings.Join([]string{
		"; ==== START MIDI TO GCODE ====",
		"M17",
		"M300 S440 P500",
		"M300 S0 P30",
		"M300 S523 P250",
		"M300 S0 P30",
		"M18",
		"; ==== END MIDI TO GCODE ====",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
	if m.Extension() != ".gcode" {
		t.Errorf("Extension() = %q, want .gcode", m.Extension())
	}
}

func TestMarlinComments(t *testing.T) {
	lines := NewMarlin().Render(converter.Command{Kind: converter.CmdTone, Frequency: 440, DurationMs: 100, Note: 69}, true)
	if len(lines) != 1 || lines[0] != "M300 S440 P100 ; A4" {
		t.Errorf("Render() = %q, want %q", lines, "M300 S440 P100 ; A4")
	}
}

func TestMikroTikRender(t *testing.T) {
	got := string(converter.Render(NewMikroTik(), program, true))
	want := strings.Join([]string{
		"# ==== START MIDI TO ROUTEROS ====",
		":beep frequency=440 length=500ms; # A4",
		":delay 500ms;",
		":delay 30ms;",
		":beep frequency=523 length=250ms; # C5",
		":delay 250ms;",
		":delay 30ms;",
		"# ==== END MIDI TO ROUTEROS ====",
	}, "\n") + "\n"

	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}
