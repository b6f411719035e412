package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// Preview is one rendering of the draft genesis shown by the live preview.
type Preview struct {
	Hash     string      // keccak of the encoded genesis; empty when not ready
	Summary  [][2]string // key facts about the draft
	Errors   map[string]string
	Warnings map[string]string
}

type previewModel struct {
	preview    *Preview
	lastUpdate time.Time
	interval   time.Duration
	quitting   bool
	load       func() (*Preview, error)
	err        string
	now        func() time.Time
}

type tickMsg time.Time
type previewLoadedMsg struct{ p *Preview }
type previewErrorMsg string

// NewPreviewDashboard creates a program that reloads the draft every
// interval and shows its validation state.
func NewPreviewDashboard(interval time.Duration, load func() (*Preview, error)) *tea.Program {
	return tea.NewProgram(newPreviewModel(interval, load))
}

func newPreviewModel(interval time.Duration, load func() (*Preview, error)) previewModel {
	return previewModel{interval: interval, load: load, now: time.Now}
}

func (m previewModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), tick(m.interval))
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.loadCmd()
		}
	case tickMsg:
		return m, tea.Batch(m.loadCmd(), tick(m.interval))
	case previewLoadedMsg:
		m.preview = msg.p
		m.lastUpdate = m.now()
		m.err = ""
	case previewErrorMsg:
		m.err = string(msg)
	}
	return m, nil
}

func (m previewModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("▲ Live Genesis Preview") + "\n")
	sb.WriteString(Meta(fmt.Sprintf("Updated: %s · r reload · q quit", m.lastUpdate.Format("15:04:05"))) + "\n\n")

	if m.err != "" {
		sb.WriteString(Err(m.err) + "\n")
	}
	p := m.preview
	if p == nil {
		sb.WriteString(Meta("Loading...") + "\n")
		return sb.String()
	}

	if len(p.Summary) > 0 {
		sb.WriteString(KeyValueBlock("Draft", p.Summary) + "\n")
	}
	if len(p.Errors) == 0 {
		sb.WriteString(Success("Ready to export") + "\n")
		if p.Hash != "" {
			sb.WriteString(Meta("keccak256 ") + Addr(p.Hash) + "\n")
		}
	} else {
		sb.WriteString(StyleError.Render(fmt.Sprintf("%d error(s)", len(p.Errors))) + "\n")
		sb.WriteString(IssueList(confstore.SortedPaths(p.Errors), p.Errors, Err))
	}
	if len(p.Warnings) > 0 {
		sb.WriteString(StyleWarning.Render(fmt.Sprintf("%d warning(s)", len(p.Warnings))) + "\n")
		sb.WriteString(IssueList(confstore.SortedPaths(p.Warnings), p.Warnings, Warn))
	}
	return sb.String()
}

func (m previewModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.load()
		if err != nil {
			return previewErrorMsg(err.Error())
		}
		return previewLoadedMsg{p}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
