package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/midi2gcode/pkg/converter"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuNavigation(t *testing.T) {
	m := New(converter.DefaultOptions())

	next, _ := m.Update(key("down"))
	m = next.(Model)
	if m.menuIndex != 1 {
		t.Errorf("menuIndex = %d, want 1", m.menuIndex)
	}

	for i := 0; i < 5; i++ {
		next, _ = m.Update(key("j"))
		m = next.(Model)
	}
	if m.menuIndex != len(menuItems)-1 {
		t.Errorf("menuIndex = %d, want clamped to %d", m.menuIndex, len(menuItems)-1)
	}

	next, _ = m.Update(key("up"))
	m = next.(Model)
	if m.menuIndex != len(menuItems)-2 {
		t.Errorf("menuIndex = %d, want %d", m.menuIndex, len(menuItems)-2)
	}
}

func TestMenuSelectOpensFilePicker(t *testing.T) {
	m := New(converter.DefaultOptions())

	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	if m.state != StateFilePicker {
		t.Errorf("state = %v, want StateFilePicker", m.state)
	}
	if m.choice.Dialect != "marlin" {
		t.Errorf("choice = %q, want marlin", m.choice.Dialect)
	}
	if cmd == nil {
		t.Error("expected file picker init command")
	}

	next, _ = m.Update(key("esc"))
	m = next.(Model)
	if m.state != StateMenu {
		t.Errorf("state = %v, want StateMenu after esc", m.state)
	}
}

func TestConversionDone(t *testing.T) {
	m := New(converter.DefaultOptions())
	m.state = StateConverting
	m.selectedFile = "/tmp/song.mid"

	next, _ := m.Update(conversionDoneMsg{outputFile: "/tmp/song.gcode", stats: converter.Stats{Tones: 12, DurationMs: 4500}})
	m = next.(Model)

	if m.state != StateResult {
		t.Fatalf("state = %v, want StateResult", m.state)
	}
	view := m.View()
	if !strings.Contains(view, "song.gcode") || !strings.Contains(view, "Tones:  12 (4.5s)") {
		t.Errorf("View() missing result details:\n%s", view)
	}

	next, _ = m.Update(key("enter"))
	m = next.(Model)
	if m.state != StateMenu || m.outputFile != "" {
		t.Errorf("state = %v, outputFile = %q after enter, want menu and cleared", m.state, m.outputFile)
	}
}

func TestConversionFailedView(t *testing.T) {
	m := New(converter.DefaultOptions())
	next, _ := m.Update(conversionDoneMsg{err: errors.New("boom")})
	m = next.(Model)

	if !strings.Contains(m.View(), "Conversion failed: boom") {
		t.Errorf("View() should show the error")
	}
}
