package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel asks the user to type an exact word (normally "YES")
// to proceed, the same friction uberdot's superforce confirmation used
// a plain input() call for.
type confirmModel struct {
	message string
	want    string
	input   textinput.Model
	done    bool
	ok      bool
}

func newConfirm(message, want string) confirmModel {
	ti := textinput.New()
	ti.Focus()
	ti.Placeholder = want
	return confirmModel{message: message, want: want, input: ti}
}

func (m confirmModel) Init() tea.Cmd { return textinput.Blink }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.done, m.ok = true, false
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			m.ok = strings.TrimSpace(m.input.Value()) == m.want
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	return titleStyle.Render(m.message) + "\n" + m.input.View() + "\n"
}

// Confirm runs a type-the-word confirmation prompt and reports
// whether the user typed "YES" (surrounding whitespace trimmed).
func Confirm(message string) bool {
	return ConfirmWord(message, "YES")
}

// ConfirmWord is Confirm with an explicit word to require, letting a
// caller ask for something more specific than "YES".
func ConfirmWord(message, want string) bool {
	m := newConfirm(message, want)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return false
	}
	return final.(confirmModel).ok
}
