package converter

import (
	"bytes"
	"strings"
)

// CommandKind identifies a machine directive
type CommandKind uint8

const (
	CmdEnable CommandKind = iota
	CmdTone
	CmdSilence
	CmdDisable
)

// Command is one format-agnostic machine directive
type Command struct {
	Kind       CommandKind
	Frequency  int // Hz, tone only
	DurationMs int // tone and silence
	Note       int // source note, tone only
}

// DefaultGapMs separates consecutive tones so they don't glide together
const DefaultGapMs = 30

// Emit folds tones into a command sequence bracketed by enable/disable.
// A gap of zero omits the silence directives.
func Emit(tones []TimedTone, gapMs int) []Command {
	cmds := make([]Command, 0, 2*len(tones)+2)
	cmds = append(cmds, Command{Kind: CmdEnable})
	for _, t := range tones {
		cmds = append(cmds, Command{
			Kind:       CmdTone,
			Frequency:  t.Frequency,
			DurationMs: t.DurationMs,
			Note:       t.Note,
		})
		if gapMs > 0 {
			cmds = append(cmds, Command{Kind: CmdSilence, DurationMs: gapMs})
		}
	}
	return append(cmds, Command{Kind: CmdDisable})
}

// Dialect renders commands in a concrete controller language
type Dialect interface {
	Name() string
	Description() string
	Extension() string
	Header() []string
	Footer() []string
	// Render returns the lines for cmd, possibly none
	Render(cmd Command, comments bool) []string
}

// Render serializes commands as newline-terminated lines
func Render(d Dialect, cmds []Command, comments bool) []byte {
	var buf bytes.Buffer
	write := func(lines []string) {
		for _, l := range lines {
			buf.WriteString(strings.TrimRight(l, "\n"))
			buf.WriteByte('\n')
		}
	}
	write(d.Header())
	for _, c := range cmds {
		write(d.Render(c, comments))
	}
	write(d.Footer())
	return buf.Bytes()
}
