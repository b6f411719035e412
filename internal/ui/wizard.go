package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SetupResult holds answers collected by the setup wizard. Empty fields
// mean the user kept the current value.
type SetupResult struct {
	Network      string
	AssistantURL string
	OwnerAddress string
	SubnetOwner  string
}

// --- Bubble Tea model ---

type setupStep int

const (
	stepNetwork setupStep = iota
	stepAssistant
	stepOwner
	stepSubnetOwner
	stepDone
)

type setupModel struct {
	step      setupStep
	result    SetupResult
	cursor    int
	choices   []string
	input     string
	inputMode bool
	quitting  bool
}

var setupNetworks = []string{"fuji", "mainnet"}

var setupPrompts = map[setupStep][2]string{
	stepAssistant:   {"Chat assistant endpoint", "URL of the chat service (Enter keeps the current one):"},
	stepOwner:       {"Genesis owner", "EVM address credited with the initial allocation (Enter to skip):"},
	stepSubnetOwner: {"Subnet owner", "P-Chain address that will own the subnet (Enter to skip):"},
}

func initialSetup() setupModel {
	return setupModel{step: stepNetwork, choices: setupNetworks}
}

func (m setupModel) Init() tea.Cmd { return nil }

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyUp:
		if !m.inputMode && m.cursor > 0 {
			m.cursor--
		}

	case tea.KeyDown:
		if !m.inputMode && m.cursor < len(m.choices)-1 {
			m.cursor++
		}

	case tea.KeyEnter:
		if m.inputMode {
			m.applyInput()
		} else if m.cursor < len(m.choices) {
			m.result.Network = m.choices[m.cursor]
		}
		m.advance()

	case tea.KeyBackspace:
		if m.inputMode && len(m.input) > 0 {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
		}

	case tea.KeyRunes, tea.KeySpace:
		if m.inputMode {
			m.input += string(key.Runes)
		} else if key.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.step == stepDone {
		return m, tea.Quit
	}
	return m, nil
}

func (m *setupModel) advance() {
	m.step++
	m.cursor = 0
	m.choices = nil
	m.input = ""
	m.inputMode = m.step < stepDone
}

func (m *setupModel) applyInput() {
	// Strip whitespace and accidental brackets from paste.
	v := strings.Trim(strings.TrimSpace(m.input), "[]")
	switch m.step {
	case stepAssistant:
		m.result.AssistantURL = v
	case stepOwner:
		m.result.OwnerAddress = v
	case stepSubnetOwner:
		m.result.SubnetOwner = v
	}
}

func (m setupModel) View() string {
	var s string
	switch m.step {
	case stepNetwork:
		s = renderMenu("Select the Avalanche network:", m.choices, m.cursor)
	case stepDone:
		s = Success("Setup complete!") + "\n"
	default:
		p := setupPrompts[m.step]
		s = StyleTitle.Render(p[0]) + "\n\n"
		s += StyleMeta.Render(p[1]) + "\n"
		s += "> " + StyleAddress.Render(m.input) + "█\n"
	}
	return StyleBorder.Render(s) + "\n"
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · q quit")
	return s
}

// RunSetup launches the interactive setup wizard. It returns nil when the
// user quits early.
func RunSetup() (*SetupResult, error) {
	final, err := tea.NewProgram(initialSetup()).Run()
	if err != nil {
		return nil, fmt.Errorf("wizard error: %w", err)
	}
	m := final.(setupModel)
	if m.quitting {
		return nil, nil
	}
	return &m.result, nil
}
