package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. A zero Width is sized to fit its content.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
	MaxCell int // cap for auto-sized columns (0 = 48)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// pad left-aligns s within exactly width display cells, truncating with an
// ellipsis when needed.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w == width {
		return s
	}
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		return string([]rune(s)[:width])
	}
	r := []rune(s)
	for lipgloss.Width(string(r)) > width-1 {
		r = r[:len(r)-1]
	}
	return pad(string(r)+"…", width)
}

func (t *Table) widths() []int {
	limit := t.MaxCell
	if limit == 0 {
		limit = 48
	}
	out := make([]int, len(t.Columns))
	for j, col := range t.Columns {
		if col.Width > 0 {
			out[j] = col.Width
			continue
		}
		w := lipgloss.Width(col.Title)
		for _, row := range t.Rows {
			if j < len(row) {
				w = max(w, lipgloss.Width(row[j]))
			}
		}
		out[j] = min(w, limit)
	}
	return out
}

// Render returns the full table as a string. Cells are padded by hand so
// lipgloss never wraps them.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)
	dimStyle := lipgloss.NewStyle().Foreground(ColorMeta)
	widths := t.widths()

	var headers, divider []string
	for j, col := range t.Columns {
		headers = append(headers, headerStyle.Render(pad(col.Title, widths[j])))
		divider = append(divider, dimStyle.Render(strings.Repeat("-", widths[j])))
	}
	sb.WriteString(strings.Join(headers, " ") + "\n")
	sb.WriteString(strings.Join(divider, " ") + "\n")

	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			style := cellStyle
			if i == t.SelIdx {
				style = StyleSelected
			}
			cells[j] = style.Render(pad(val, widths[j]))
		}
		sb.WriteString(strings.Join(cells, " ") + "\n")
	}
	return sb.String()
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := 20
	for _, p := range pairs {
		keyWidth = max(keyWidth, lipgloss.Width(p[0])+1)
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-*s", keyWidth, p[0]+":"))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}

// IssueList renders validation messages keyed by path, in the given order.
func IssueList(paths []string, msgs map[string]string, render func(string) string) string {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString("  " + render(msgs[p]) + "  " + Path(p) + "\n")
	}
	return sb.String()
}
