package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/steps"
)

// StepWizard wires the interactive editor to the configuration it edits.
type StepWizard struct {
	Store *confstore.Store
	Nav   *steps.Navigator
	// Check returns blocking errors and warnings keyed by flat path.
	Check func(*confstore.Node) (errs, warns map[string]string)
	// OnStep is called with the 1-based step number after each move.
	OnStep func(number int) error
}

type stepWizardModel struct {
	w        StepWizard
	cursor   int
	editing  bool
	input    string
	status   string
	errs     map[string]string
	warns    map[string]string
	quitting bool
}

func newStepWizardModel(w StepWizard) stepWizardModel {
	m := stepWizardModel{w: w}
	m.recheck()
	return m
}

func (m stepWizardModel) Init() tea.Cmd { return nil }

func (m stepWizardModel) fields() []steps.Field {
	s := m.w.Nav.Current()
	if s.Group == nil {
		return s.Fields
	}
	return s.FieldsFor(s.Group.Len(m.w.Store.SnapshotNested()))
}

func (m stepWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.editing {
		return m.updateEditing(key)
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.fields())-1 {
			m.cursor++
		}
	case "right", "l", "tab":
		if m.w.Nav.Next() {
			m.moved()
		}
	case "left", "h", "shift+tab":
		if m.w.Nav.Previous() {
			m.moved()
		}
	case "enter", " ":
		m.activate()
	case "a", "+":
		m.addItem()
	case "d", "-", "delete":
		m.removeItem()
	}
	return m, nil
}

// addItem appends an item to the current step's group and moves the cursor
// to its first field.
func (m *stepWizardModel) addItem() {
	g := m.w.Nav.Current().Group
	if g == nil {
		return
	}
	if err := m.w.Store.Append(g.Path, g.NewItem()); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
	m.recheck()
	n := g.Len(m.w.Store.SnapshotNested())
	m.cursor = len(m.w.Nav.Current().Fields) + (n-1)*len(g.Fields)
}

// removeItem deletes the group item under the cursor.
func (m *stepWizardModel) removeItem() {
	g := m.w.Nav.Current().Group
	fs := m.fields()
	if g == nil || m.cursor >= len(fs) {
		return
	}
	i, ok := g.ItemOf(fs[m.cursor].Path)
	if !ok {
		return
	}
	if err := m.w.Store.RemoveIndex(g.Path, i); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
	m.recheck()
	if n := len(m.fields()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m stepWizardModel) updateEditing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
		m.input = ""
		m.status = ""
	case tea.KeyEnter:
		f := m.fields()[m.cursor]
		l, err := f.Parse(m.input)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.set(f.Path, l)
		m.editing = false
		m.input = ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(key.Runes)
	}
	return m, nil
}

// activate edits an input field, cycles a radio and flips a toggle.
func (m *stepWizardModel) activate() {
	fs := m.fields()
	if len(fs) == 0 {
		return
	}
	f := fs[m.cursor]
	cur, _ := m.w.Store.GetLeaf(f.Path)

	switch f.Kind {
	case steps.Toggle:
		b, _ := cur.BoolValue()
		m.set(f.Path, confstore.Bool(!b))
	case steps.Radio:
		if len(f.Options) == 0 {
			return
		}
		next := 0
		for i, o := range f.Options {
			if o.Value == cur {
				next = (i + 1) % len(f.Options)
				break
			}
		}
		m.set(f.Path, f.Options[next].Value)
	default:
		m.editing = true
		m.status = ""
		if cur.Kind() == confstore.LeafNull {
			m.input = ""
		} else {
			m.input = f.Display(cur)
		}
	}
}

func (m *stepWizardModel) set(path string, l confstore.Leaf) {
	if err := m.w.Store.SetValue(path, l); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
	m.recheck()
}

func (m *stepWizardModel) moved() {
	m.cursor = 0
	m.status = ""
	if m.w.OnStep != nil {
		if err := m.w.OnStep(m.w.Nav.Number()); err != nil {
			m.status = err.Error()
		}
	}
}

func (m *stepWizardModel) recheck() {
	if m.w.Check == nil {
		return
	}
	m.errs, m.warns = m.w.Check(m.w.Store.SnapshotNested())
}

// issuesFor collects messages that belong to a field, including those raised
// against the list a toggle enables.
func issuesFor(path string, msgs map[string]string) []string {
	related := []string{path}
	switch {
	case strings.HasSuffix(path, ".enabled"):
		related = append(related, strings.TrimSuffix(path, ".enabled"))
	case strings.HasSuffix(path, "Enabled"):
		related = append(related, strings.TrimSuffix(path, "Enabled")+"Admins")
	}

	var out []string
	for _, k := range confstore.SortedPaths(msgs) {
		for _, r := range related {
			if k == r || (r != path && strings.HasPrefix(k, r+".")) {
				out = append(out, msgs[k])
				break
			}
		}
	}
	return out
}

func (m stepWizardModel) View() string {
	if m.quitting {
		return ""
	}
	nav := m.w.Nav
	var sb strings.Builder

	sb.WriteString(StyleTitle.Render(fmt.Sprintf("Step %d/%d · %s", nav.Number(), nav.Total(), nav.Current().Title)) + "\n")
	sb.WriteString(ProgressBar(nav.Percent(), 30) + "\n\n")

	for i, f := range m.fields() {
		prefix := "  "
		heading := StyleValue.Render(f.Heading)
		if i == m.cursor {
			prefix = "▸ "
			heading = StyleSelected.Render(f.Heading)
		}
		sb.WriteString(prefix + heading + "\n")

		switch {
		case m.editing && i == m.cursor:
			sb.WriteString("    > " + StyleAddress.Render(m.input) + "█\n")
		default:
			sb.WriteString("    " + m.renderValue(f) + "\n")
		}
		if f.Description != "" && i == m.cursor {
			sb.WriteString("    " + Meta(f.Description) + "\n")
		}
		for _, e := range issuesFor(f.Path, m.errs) {
			sb.WriteString("    " + Err(e) + "\n")
		}
		for _, w := range issuesFor(f.Path, m.warns) {
			sb.WriteString("    " + Warn(w) + "\n")
		}
	}

	if g := nav.Current().Group; g != nil {
		label := strings.ToLower(g.Label)
		if g.Len(m.w.Store.SnapshotNested()) == 0 {
			sb.WriteString("  " + Meta(fmt.Sprintf("No %ss yet. Press a to add one.", label)) + "\n")
		}
		for _, e := range issuesFor(g.Path, m.errs) {
			sb.WriteString("  " + Err(e) + "\n")
		}
	}

	if m.status != "" {
		sb.WriteString("\n" + Err(m.status) + "\n")
	}
	if len(m.errs) == 0 {
		sb.WriteString("\n" + Success("Configuration is ready to export") + "\n")
	} else {
		sb.WriteString("\n" + Meta(fmt.Sprintf("%d issue(s) block export", len(m.errs))) + "\n")
	}
	help := "↑/↓ field · Enter edit · ←/→ step · q quit"
	if nav.Current().Group != nil {
		help = "↑/↓ field · Enter edit · a add · d remove · ←/→ step · q quit"
	}
	sb.WriteString(Meta(help) + "\n")
	return sb.String()
}

func (m stepWizardModel) renderValue(f steps.Field) string {
	l, ok := m.w.Store.GetLeaf(f.Path)
	if !ok || l.Kind() == confstore.LeafNull || (l.Kind() == confstore.LeafString && l.String() == "") {
		if f.Placeholder == "" {
			return Meta("(empty)")
		}
		return Meta(f.Placeholder)
	}
	if f.Kind == steps.Toggle {
		if b, _ := l.BoolValue(); b {
			return StyleSuccess.Render("[x] yes")
		}
		return Meta("[ ] no")
	}
	return Val(f.Display(l))
}

// RunStepWizard runs the step editor until the user quits. Every change is
// written straight to w.Store.
func RunStepWizard(w StepWizard) error {
	if w.Store == nil || w.Nav == nil || w.Nav.Total() == 0 {
		return fmt.Errorf("step wizard: nothing to edit")
	}
	if _, err := tea.NewProgram(newStepWizardModel(w), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("step wizard: %w", err)
	}
	return nil
}
