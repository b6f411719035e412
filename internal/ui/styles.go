package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green, valid, applied
	ColorWarning   = lipgloss.Color("#FFB800") // yellow, warnings
	ColorError     = lipgloss.Color("#FF4444") // red, blocking errors
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan, addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold, field values
	ColorMeta      = lipgloss.Color("#555555") // dim gray, placeholders, metadata
	ColorBorder    = lipgloss.Color("#5F1E1E") // dark red, UI chrome
	ColorBrand     = lipgloss.Color("#E84142") // avalanche red
	ColorPath      = lipgloss.Color("#9B5DE5") // purple, config paths
	ColorHighlight = lipgloss.Color("#F15BB5") // pink, selected rows
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleBrand   = lipgloss.NewStyle().Foreground(ColorBrand).Bold(true)
	StylePath    = lipgloss.NewStyle().Foreground(ColorPath)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorAddress).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorBrand).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Verbose enables Debugf output.
var Verbose bool

// Banner returns the avagen ASCII banner.
func Banner(version string) string {
	art := `
   █████╗ ██╗   ██╗ █████╗  ██████╗ ███████╗███╗   ██╗
  ██╔══██╗██║   ██║██╔══██╗██╔════╝ ██╔════╝████╗  ██║
  ███████║██║   ██║███████║██║  ███╗█████╗  ██╔██╗ ██║
  ██╔══██║╚██╗ ██╔╝██╔══██║██║   ██║██╔══╝  ██║╚██╗██║
  ██║  ██║ ╚████╔╝ ██║  ██║╚██████╔╝███████╗██║ ╚████║
  ╚═╝  ╚═╝  ╚═══╝  ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝`

	tagline := StyleMeta.Render("     Avalanche L1 genesis builder  ▲  v" + version)
	features := StyleMeta.Render("  ✦ Guided wizard  ✦ Chat assistant  ✦ subnet-evm genesis")

	return StyleBrand.Render(art) + "\n" + tagline + "\n" + features + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for the next command to run.
func Hint(msg string) string { return StyleMeta.Render("💡 " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// Path formats a configuration path.
func Path(p string) string { return StylePath.Render(p) }

// Debugf prints to stderr when Verbose is set.
func Debugf(format string, args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintln(os.Stderr, StyleDim.Render("· "+fmt.Sprintf(format, args...)))
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// ProgressBar renders a fixed-width bar for percent in [0, 100].
func ProgressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	bar := StyleBrand.Render(strings.Repeat("■", filled)) + StyleDim.Render(strings.Repeat("□", width-filled))
	return fmt.Sprintf("%s %3d%%", bar, percent)
}
