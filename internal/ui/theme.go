package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background  string
	Surface     string
	SelectionBg string
	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StatusColors maps store, payment and log-level states to badge colors.
	StatusColors map[string]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Panel    lipgloss.Style
	Focused  lipgloss.Style

	statusColors map[string]string
	background   string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.Text)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),
		Focused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.BorderFocus)).
			Padding(0, 1),

		statusColors: t.StatusColors,
		background:   t.Background,
	}
}

// StatusStyle returns a badge style for the given status.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = "#6272A4"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themes = map[string]Theme{
	"Iron":  ironTheme(),
	"Chalk": chalkTheme(),
}

var themeOrder = []string{"Iron", "Chalk"}

// GetTheme returns a theme by name, falling back to Iron.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return ironTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func ironTheme() Theme {
	// Dracula palette
	return Theme{
		Name:        "Iron",
		Background:  "#191A21",
		Surface:     "#282A36",
		SelectionBg: "#44475A",
		Border:      "#44475A",
		BorderFocus: "#BD93F9",

		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Faint:   "#44475A",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#FFB86C",
		Danger:  "#FF5555",
		Info:    "#8BE9FD",

		StatusColors: map[string]string{
			"idle":           "#6272A4",
			"loading":        "#8BE9FD",
			"updating":       "#FF79C6",
			"authenticating": "#BD93F9",
			"ready":          "#50FA7B",
			"approved":       "#50FA7B",
			"pending":        "#FFB86C",
			"rejected":       "#FF5555",
			"cancelled":      "#FF5555",
			"error":          "#FF5555",
			"WARNING":        "#FFB86C",
			"ERROR":          "#FF5555",
			"INFO":           "#8BE9FD",
			"DEBUG":          "#6272A4",
		},
	}
}

func chalkTheme() Theme {
	// Tailwind slate/sky palette
	return Theme{
		Name:        "Chalk",
		Background:  "#020617",
		Surface:     "#0f172a",
		SelectionBg: "#0284c7",
		Border:      "#334155",
		BorderFocus: "#38bdf8",

		Text:    "#f1f5f9",
		Muted:   "#94a3b8",
		Faint:   "#64748b",
		Accent:  "#38bdf8",
		Success: "#22c55e",
		Warning: "#f59e0b",
		Danger:  "#ef4444",
		Info:    "#06b6d4",

		StatusColors: map[string]string{
			"idle":           "#64748b",
			"loading":        "#38bdf8",
			"updating":       "#ec4899",
			"authenticating": "#8b5cf6",
			"ready":          "#22c55e",
			"approved":       "#16a34a",
			"pending":        "#f59e0b",
			"rejected":       "#dc2626",
			"cancelled":      "#dc2626",
			"error":          "#dc2626",
			"WARNING":        "#f59e0b",
			"ERROR":          "#dc2626",
			"INFO":           "#06b6d4",
			"DEBUG":          "#64748b",
		},
	}
}
