// Package prompt implements udot's interactive terminal surface: the
// StaticFile conflict menu, type-the-word confirmations, and the
// drifted-link fix prompt, all as small bubbletea programs in the
// style of internal/agenttui's monitor, scaled down to the
// pick-one-of-N shape these need instead of a live-refreshing view.
package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// menuModel is the shared bubbletea model behind every fixed-choice
// prompt in this package: a title, a list of labeled choices, arrow
// keys plus number-key shortcuts to pick one, Enter to confirm.
type menuModel struct {
	title   string
	choices []string
	cursor  int
	chosen  int // -1 until Enter; -2 if aborted
}

func newMenu(title string, choices []string) menuModel {
	return menuModel{title: title, choices: choices, chosen: -1}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		m.chosen = -2
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	default:
		if n := digitIndex(keyMsg.String()); n >= 0 && n < len(m.choices) {
			m.chosen = n
			return m, tea.Quit
		}
	}
	return m, nil
}

func digitIndex(key string) int {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return -1
	}
	return int(key[0]-'1')
}

func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, choice := range m.choices {
		cursor := "  "
		style := dimStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, style.Render(fmt.Sprintf("%d. %s", i+1, choice))))
	}
	b.WriteString(dimStyle.Render("\n↑/↓ or 1-9 to choose, enter to confirm, q to abort\n"))
	return b.String()
}

// runMenu drives a menuModel to completion and returns the chosen
// index, or -1 if the user aborted.
func runMenu(title string, choices []string) (int, error) {
	m := newMenu(title, choices)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return -1, err
	}
	result := final.(menuModel)
	if result.chosen < 0 {
		return -1, nil
	}
	return result.chosen, nil
}
