// Package tui provides a terminal user interface for midi2gcode
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/james-see/midi2gcode/pkg/converter"
	"github.com/james-see/midi2gcode/pkg/converter/dialects"
)

// Printer-panel color scheme
var (
	hotendOrange = lipgloss.Color("#FF8C00")
	bedAmber     = lipgloss.Color("#FFC107")
	steelGray    = lipgloss.Color("#C0C0C0")
	panelGray    = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(hotendOrange).
			Background(panelGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(steelGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(hotendOrange).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(bedAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(hotendOrange).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(bedAmber)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(hotendOrange).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Dialect     string
}

var menuItems = []MenuItem{
	{Title: "MIDI → G-code", Description: "Marlin M300 beeper program for 3D printers", Dialect: "marlin"},
	{Title: "MIDI → RouterOS", Description: "MikroTik :beep script", Dialect: "mikrotik"},
	{Title: "Exit", Description: "Exit the application"},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	opts         converter.Options
	selectedFile string
	outputFile   string
	choice       MenuItem
	stats        converter.Stats
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	stats      converter.Stats
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model converting with opts
func New(opts converter.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(hotendOrange)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
		opts:       opts,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.choice = menuItems[m.menuIndex]
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.stats = converter.Stats{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	input := m.selectedFile
	choice := m.choice
	opts := m.opts
	return func() tea.Msg {
		dialect, err := dialects.Get(choice.Dialect)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		base := strings.TrimSuffix(input, filepath.Ext(input))
		output := base + dialect.Extension()

		// The alt screen owns the terminal, keep the converter quiet
		ctx := log.WithContext(context.Background(), log.New(io.Discard))
		res, err := converter.New(dialect, opts).ConvertFile(ctx, input, output)
		if err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{outputFile: output, stats: res.Stats}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT OUTPUT "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(bedAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(fmt.Sprintf("channel %d • gap %d ms • %s", m.opts.Channel, m.opts.GapMs, m.opts.Order)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  midi → %s", m.choice.Dialect)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(m.outputFile)))
		s.WriteString(fmt.Sprintf("Tones:  %d (%.1fs)", m.stats.Tones, float64(m.stats.DurationMs)/1000))
		if m.stats.Tones == 0 {
			s.WriteString("\n")
			s.WriteString(warnStyle.Render(fmt.Sprintf("no notes on channel %d", m.opts.Channel)))
		}
		if m.stats.Unclosed > 0 || m.stats.Dropped > 0 || m.stats.OutOfRange > 0 {
			s.WriteString("\n")
			s.WriteString(warnStyle.Render(fmt.Sprintf("%d unclosed, %d too short, %d out of range", m.stats.Unclosed, m.stats.Dropped, m.stats.OutOfRange)))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
            _     _ _ ____                       _
  _ __ ___ (_) __| (_)___ \ __ _  ___ ___   __| | ___
 | '_ ` + "`" + ` _ \| |/ _` + "`" + ` | | __) / _` + "`" + ` |/ __/ _ \ / _` + "`" + ` |/ _ \
 | | | | | | | (_| | |/ __/ (_| | (_| (_) | (_| |  __/
 |_| |_| |_|_|\__,_|_|_____\__, |\___\___/ \__,_|\___|
                           |___/
`
	return lipgloss.NewStyle().Foreground(hotendOrange).Render(logo)
}

// Run starts the TUI application
func Run(opts converter.Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
