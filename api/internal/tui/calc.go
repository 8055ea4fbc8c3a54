// Package tui is the terminal keypad calculator behind `mathbot calc`.
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"math-bot/api/internal/calc"
)

const displayWidth = 40

// Keys mirrors the Telegram keypad without Close and help.
var Keys = [][]string{
	{"1", "2", "3", "+", "⌫"},
	{"4", "5", "6", "-", "C"},
	{"7", "8", "9", "×", "q"},
	{".", "0", "=", "÷", "?"},
}

var keyText = map[string]string{"q": "Quit", "?": "Help"}

type Styles struct {
	Display lipgloss.Style
	Key     lipgloss.Style
	Cursor  lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Display: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8BC34A")).
			Padding(0, 1).
			Width(displayWidth),
		Key:    lipgloss.NewStyle().Width(6).Align(lipgloss.Center),
		Cursor: lipgloss.NewStyle().Width(6).Align(lipgloss.Center).Reverse(true).Bold(true),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}

// Model хранит строку ввода, курсор на клавиатуре и шаги последней свёртки.
type Model struct {
	Expression string
	Steps      []string
	Err        error
	Help       bool

	row, col int
	styles   Styles
}

func New() Model {
	return Model{styles: DefaultStyles()}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch km.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyUp:
		m.row = (m.row + len(Keys) - 1) % len(Keys)
		return m, nil
	case tea.KeyDown:
		m.row = (m.row + 1) % len(Keys)
		return m, nil
	case tea.KeyLeft:
		m.col = (m.col + len(Keys[m.row]) - 1) % len(Keys[m.row])
		return m, nil
	case tea.KeyRight:
		m.col = (m.col + 1) % len(Keys[m.row])
		return m, nil
	case tea.KeyEnter, tea.KeySpace:
		return m.Press(Keys[m.row][m.col])
	case tea.KeyBackspace:
		return m.Press("⌫")
	case tea.KeyRunes:
		key := string(km.Runes)
		switch key {
		case "*":
			key = "×"
		case "/":
			key = "÷"
		case "c":
			key = "C"
		}
		return m.Press(key)
	}
	return m, nil
}

// Press applies one keypad key.
func (m Model) Press(key string) (tea.Model, tea.Cmd) {
	m.Help = false
	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.Help = true
		return m, nil
	case "=":
		red, err := calc.Evaluate(m.Expression)
		if err != nil {
			m.Err = err
			return m, nil
		}
		m.Err = nil
		m.Steps = red.Steps
		m.Expression = red.String()
		return m, nil
	case "C":
		m.Expression, m.Steps, m.Err = "", nil, nil
		return m, nil
	case "⌫":
		if r := []rune(m.Expression); len(r) > 0 {
			m.Expression = string(r[:len(r)-1])
		}
		m.Err = nil
		return m, nil
	}
	if !validKey(key) {
		return m, nil
	}
	switch key {
	case "×":
		key = "*"
	case "÷":
		key = "/"
	}
	if len(m.Expression)+len(key) <= displayWidth {
		m.Expression += key
	}
	m.Err = nil
	return m, nil
}

func validKey(key string) bool {
	if len(key) == 1 && strings.ContainsAny(key, "0123456789.+-*/") {
		return true
	}
	return key == "×" || key == "÷"
}

func (m Model) View() string {
	var b strings.Builder

	screen := m.Expression
	if m.Err != nil {
		screen = "ERROR"
	}
	b.WriteString(m.styles.Display.Render(screen))
	b.WriteString("\n")

	for r, row := range Keys {
		cells := make([]string, len(row))
		for c, k := range row {
			label := k
			if t, ok := keyText[k]; ok {
				label = t
			}
			st := m.styles.Key
			if r == m.row && c == m.col {
				st = m.styles.Cursor
			}
			cells[c] = st.Render(label)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	switch {
	case m.Err != nil:
		b.WriteString(m.styles.Error.Render(m.Err.Error()))
		b.WriteString("\n")
	case len(m.Steps) > 0:
		for _, s := range m.Steps {
			b.WriteString(m.styles.Muted.Render("= " + s))
			b.WriteString("\n")
		}
	}
	if m.Help {
		b.WriteString(helpText)
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render("arrows+enter or type · = reduce · esc quit"))
	return b.String()
}

const helpText = "Operators fold tier by tier: every / first, then *, then -, then +.\n" +
	"Press = to reduce, C to clear."

// Run starts the calculator on the terminal and returns the last expression on screen.
func Run() (string, error) {
	final, err := tea.NewProgram(New()).Run()
	if err != nil {
		return "", err
	}
	return final.(Model).Expression, nil
}
