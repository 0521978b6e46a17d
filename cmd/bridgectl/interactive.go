package main

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/bridge"
	"github.com/wippyai/native-bridge/config"
	"github.com/wippyai/native-bridge/file"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateInput
	stateShowResult
)

// action is a command that needs one line of input.
type action int

const (
	actionMkdir action = iota
	actionChmod
)

type interactiveModel struct {
	err      error
	rt       *bridge.Runtime
	dir      string
	result   string
	entries  []string
	input    textinput.Model
	selected int
	action   action
	state    modelState
}

type listedMsg struct {
	err     error
	entries []string
}

type resultMsg struct {
	err    error
	result string
}

func newInteractiveModel(rt *bridge.Runtime, dir string) *interactiveModel {
	return &interactiveModel{rt: rt, dir: dir, state: stateBrowse}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.list
}

func (m *interactiveModel) list() tea.Msg {
	names, err := m.rt.Files().ListFiles(m.dir)
	if err != nil {
		return listedMsg{err: err}
	}
	return listedMsg{entries: append([]string{"../"}, names...)}
}

func (m *interactiveModel) current() string {
	if len(m.entries) == 0 {
		return m.dir
	}
	return path.Join(m.dir, m.entries[m.selected])
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateInput {
			switch msg.String() {
			case "enter":
				return m, m.apply(m.input.Value())
			case "esc":
				m.state = stateBrowse
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				if len(m.entries) == 0 {
					return m, nil
				}
				if strings.HasSuffix(m.entries[m.selected], "/") {
					m.dir = m.current()
					m.selected = 0
					return m, m.list
				}
				return m, m.stat
			case stateShowResult:
				m.state = stateBrowse
				m.result, m.err = "", nil
				return m, m.list
			}

		case "backspace", "h":
			if m.state == stateBrowse {
				m.dir = path.Dir(strings.TrimSuffix(m.dir, "/"))
				m.selected = 0
				return m, m.list
			}

		case "m":
			if m.state == stateBrowse {
				m.prompt(actionMkdir, "new directory: ", "name")
				return m, textinput.Blink
			}

		case "c":
			if m.state == stateBrowse && len(m.entries) > 0 {
				m.prompt(actionChmod, "chmod "+m.entries[m.selected]+": ", "644")
				return m, textinput.Blink
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateBrowse
				m.result, m.err = "", nil
			}
		}

	case listedMsg:
		m.err = msg.err
		m.entries = msg.entries
		if m.selected >= len(m.entries) {
			m.selected = 0
		}

	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	return m, nil
}

func (m *interactiveModel) prompt(a action, prompt, placeholder string) {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = placeholder
	ti.Width = 40
	ti.Focus()
	m.input = ti
	m.action = a
	m.state = stateInput
}

func (m *interactiveModel) apply(value string) tea.Cmd {
	fs := m.rt.Files()
	target := m.current()
	switch m.action {
	case actionMkdir:
		dir := path.Join(m.dir, value)
		return func() tea.Msg {
			if err := fs.CreateDirectory(dir); err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{result: "created " + dir}
		}
	default:
		return func() tea.Msg {
			mode, err := strconv.Atoi(value)
			if err != nil {
				return resultMsg{err: fmt.Errorf("mode %q: %w", value, err)}
			}
			prev, err := fs.Chmod(target, mode)
			if err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{result: fmt.Sprintf("%s: %03d -> %03d", target, prev, mode)}
		}
	}
}

func (m *interactiveModel) stat() tea.Msg {
	fs := m.rt.Files()
	p := m.current()
	size, err := fs.Size(p)
	if err != nil {
		return resultMsg{err: err}
	}
	modified, err := fs.Time(p, file.TimeModified)
	if err != nil {
		return resultMsg{err: err}
	}
	f, err := fs.Create(p, file.DontOpen)
	if err != nil {
		return resultMsg{err: err}
	}
	attrs, err := f.Attributes()
	if err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{result: fmt.Sprintf("%s\n\nsize:       %d\nmodified:   %s\nattributes: %s",
		p, size, modified.Std().Format(time.RFC3339), formatAttrs(attrs))}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Native Bridge"))
	b.WriteString(" ")
	b.WriteString(m.rt.Files().Host().Name())
	b.WriteString(":")
	b.WriteString(m.dir)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse, stateInput:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		for i, e := range m.entries {
			line := "  " + e
			if strings.HasSuffix(e, "/") {
				line = "  " + dirStyle.Render(e)
			}
			if i == m.selected {
				line = selectedStyle.Render("> " + e)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateInput {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter apply • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter open • backspace up • m mkdir • c chmod • q quit"))
		}

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(cfg config.Config, dir string) error {
	// Logging to the terminal would corrupt the TUI.
	rt, err := bridge.New(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer rt.Close()

	p := tea.NewProgram(newInteractiveModel(rt, dir), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
