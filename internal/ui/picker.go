package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/avagen/internal/steps"
)

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // primary text (e.g. step title)
	SubLabel string // dimmed detail (e.g. field count)
	Value    string // returned on selection
}

type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected *PickerItem
	quitting bool
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) > 0 {
			item := m.items[m.cursor]
			m.selected = &item
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  "+m.title) + "\n\n")
	for i, item := range m.items {
		prefix := "    "
		if i == m.cursor {
			prefix = "  ▸ "
		}
		line := prefix + StyleValue.Render(item.Label)
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   [ q ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive list picker and returns the selected Value.
// It returns ("", nil) when the user cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to pick from")
	}
	final, err := tea.NewProgram(pickerModel{title: title, items: items}, tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	if fm.quitting || fm.selected == nil {
		return "", nil
	}
	return fm.selected.Value, nil
}

// StepItems lists wizard steps for the picker; values are 1-based numbers.
func StepItems(all []steps.Step, current int) []PickerItem {
	items := make([]PickerItem, len(all))
	for i, s := range all {
		sub := fmt.Sprintf("%d field(s)", len(s.Fields))
		if s.Group != nil {
			sub = fmt.Sprintf("%s list", strings.ToLower(s.Group.Label))
			if len(s.Fields) > 0 {
				sub = fmt.Sprintf("%d field(s) + %s", len(s.Fields), sub)
			}
		}
		if i+1 == current {
			sub += " · current"
		}
		items[i] = PickerItem{
			Label:    fmt.Sprintf("%d. %s", i+1, s.Title),
			SubLabel: sub,
			Value:    strconv.Itoa(i + 1),
		}
	}
	return items
}

// PickStep asks which step to open and returns its 1-based number, or 0
// when the user cancels.
func PickStep(all []steps.Step, current int) (int, error) {
	v, err := PickItem("Jump to step", StepItems(all, current))
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.Atoi(v)
}
