package dialects

import (
	"fmt"

	"github.com/james-see/midi2gcode/pkg/converter"
)

// MikroTik renders tones as a RouterOS script. :beep returns immediately,
// so every beep is followed by a :delay of the same length.
type MikroTik struct{}

// NewMikroTik creates a RouterOS script dialect
func NewMikroTik() *MikroTik {
	return &MikroTik{}
}

// Name returns the dialect name
func (m *MikroTik) Name() string {
	return "mikrotik"
}

// Description returns a short description
func (m *MikroTik) Description() string {
	return "MikroTik RouterOS :beep script"
}

// Extension returns the output file extension
func (m *MikroTik) Extension() string {
	return ".rsc"
}

// Header returns the lines written before the program
func (m *MikroTik) Header() []string {
	return []string{"# ==== START MIDI TO ROUTEROS ===="}
}

// Footer returns the lines written after the program
func (m *MikroTik) Footer() []string {
	return []string{"# ==== END MIDI TO ROUTEROS ===="}
}

// Render renders one command. The speaker has no enable state.
func (m *MikroTik) Render(cmd converter.Command, comments bool) []string {
	switch cmd.Kind {
	case converter.CmdTone:
		beep := fmt.Sprintf(":beep frequency=%d length=%dms;", cmd.Frequency, cmd.DurationMs)
		if comments {
			beep += " # " + converter.NoteName(cmd.Note)
		}
		return []string{beep, fmt.Sprintf(":delay %dms;", cmd.DurationMs)}
	case converter.CmdSilence:
		return []string{fmt.Sprintf(":delay %dms;", cmd.DurationMs)}
	}
	return nil
}
