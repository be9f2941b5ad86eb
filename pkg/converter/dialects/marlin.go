package dialects

import (
	"fmt"

	"github.com/james-see/midi2gcode/pkg/converter"
)

// Marlin renders tones as M300 beeper G-code. M17/M18 enable and release
// the steppers around the program.
type Marlin struct{}

// NewMarlin creates a Marlin G-code dialect
func NewMarlin() *Marlin {
	return &Marlin{}
}

// Name returns the dialect name
func (m *Marlin) Name() string {
	return "marlin"
}

// Description returns a short description
func (m *Marlin) Description() string {
	return "Marlin G-code (M300 beeper)"
}

// Extension returns the output file extension
func (m *Marlin) Extension() string {
	return ".gcode"
}

// Header returns the lines written before the program
func (m *Marlin) Header() []string {
	return []string{"; ==== START MIDI TO GCODE ===="}
}

// Footer returns the lines written after the program
func (m *Marlin) Footer() []string {
	return []string{"; ==== END MIDI TO GCODE ===="}
}

// Render renders one command
func (m *Marlin) Render(cmd converter.Command, comments bool) []string {
	switch cmd.Kind {
	case converter.CmdEnable:
		return []string{"M17"}
	case converter.CmdDisable:
		return []string{"M18"}
	case converter.CmdTone:
		line := fmt.Sprintf("M300 S%d P%d", cmd.Frequency, cmd.DurationMs)
		if comments {
			line += " ; " + converter.NoteName(cmd.Note)
		}
		return []string{line}
	case converter.CmdSilence:
		return []string{fmt.Sprintf("M300 S0 P%d", cmd.DurationMs)}
	}
	return nil
}
