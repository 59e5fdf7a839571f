package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Selected      lipgloss.Style
	StatusPending lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	LowConfidence lipgloss.Style
	Unidentified  lipgloss.Style
	Italic        lipgloss.Style
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Code          lipgloss.Style
	RoundedBox    lipgloss.Style
	Highlighted   lipgloss.Style
	Box           lipgloss.Style
	BorderedBox   lipgloss.Style
	Secondary     lipgloss.Color
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Foreground    lipgloss.Color
	Background    lipgloss.Color
	Info          lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Success       lipgloss.Color
}

// palette is the set of colors a theme is derived from.
type palette struct {
	primary            lipgloss.Color
	secondary          lipgloss.Color
	success            lipgloss.Color
	warning            lipgloss.Color
	errorColor         lipgloss.Color
	info               lipgloss.Color
	background         lipgloss.Color
	foreground         lipgloss.Color
	border             lipgloss.Color
	muted              lipgloss.Color
	subtle             lipgloss.Color
	surface            lipgloss.Color
	selectedForeground lipgloss.Color
	codeForeground     lipgloss.Color
}

func newTheme(p palette) Theme {
	return Theme{
		Primary:    p.primary,
		Secondary:  p.secondary,
		Success:    p.success,
		Warning:    p.warning,
		Error:      p.errorColor,
		Info:       p.info,
		Background: p.background,
		Foreground: p.foreground,
		Border:     p.border,
		Muted:      p.muted,

		// Text styles
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.foreground).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.subtle).
			MarginBottom(1),
		Normal: lipgloss.NewStyle().
			Foreground(p.foreground),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.foreground),
		Italic: lipgloss.NewStyle().
			Italic(true).
			Foreground(p.foreground),
		Code: lipgloss.NewStyle().
			Background(p.surface).
			Foreground(p.codeForeground).
			Padding(0, 1),
		Selected: lipgloss.NewStyle().
			Background(p.primary).
			Foreground(p.selectedForeground).
			Bold(true),
		Highlighted: lipgloss.NewStyle().
			Background(p.border).
			Foreground(p.foreground),

		// Component styles
		Box: lipgloss.NewStyle().
			Padding(1, 2),
		BorderedBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1),

		// Status styles
		StatusSuccess: lipgloss.NewStyle().
			Foreground(p.success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(p.warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(p.errorColor).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(p.info).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),

		// Detection tiles
		LowConfidence: lipgloss.NewStyle().
			Foreground(p.warning),
		Unidentified: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),
	}
}

// Default is the default theme.
var Default = newTheme(palette{
	primary:            lipgloss.Color("#7c3aed"),
	secondary:          lipgloss.Color("#a78bfa"),
	success:            lipgloss.Color("#10b981"),
	warning:            lipgloss.Color("#f59e0b"),
	errorColor:         lipgloss.Color("#ef4444"),
	info:               lipgloss.Color("#3b82f6"),
	background:         lipgloss.Color("#1a1a1a"),
	foreground:         lipgloss.Color("#fafafa"),
	border:             lipgloss.Color("#404040"),
	muted:              lipgloss.Color("#737373"),
	subtle:             lipgloss.Color("#a3a3a3"),
	surface:            lipgloss.Color("#262626"),
	selectedForeground: lipgloss.Color("#fafafa"),
	codeForeground:     lipgloss.Color("#e5e5e5"),
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = newTheme(palette{
	primary:            lipgloss.Color("#cba6f7"),
	secondary:          lipgloss.Color("#f5c2e7"),
	success:            lipgloss.Color("#a6e3a1"),
	warning:            lipgloss.Color("#f9e2af"),
	errorColor:         lipgloss.Color("#f38ba8"),
	info:               lipgloss.Color("#89dceb"),
	background:         lipgloss.Color("#1e1e2e"),
	foreground:         lipgloss.Color("#cdd6f4"),
	border:             lipgloss.Color("#45475a"),
	muted:              lipgloss.Color("#6c7086"),
	subtle:             lipgloss.Color("#a6adc8"),
	surface:            lipgloss.Color("#313244"),
	selectedForeground: lipgloss.Color("#1e1e2e"),
	codeForeground:     lipgloss.Color("#cdd6f4"),
})

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}
