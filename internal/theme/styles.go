package theme

import "github.com/charmbracelet/lipgloss"

// Palette holds the terminal colors derived from a preference.
type Palette struct {
	BG       string // background
	FG       string // primary text, the segment's primary color
	Muted    string // secondary info
	Accent   string // highlights, the segment's secondary color
	AccentBg string // selection background
	Warning  string
	Error    string
}

// DefaultPalette returns the fallback palette used before any segment theme
// has been applied.
func DefaultPalette() Palette {
	return Palette{
		BG:       "#0a0a0a",
		FG:       "#d4a017",
		Muted:    "#6b6b4f",
		Accent:   "#8bc34a",
		AccentBg: "#1a1a14",
		Warning:  "#ffb347",
		Error:    "#ff6b6b",
	}
}

// PaletteFor derives a palette from pref, keeping the default for colors
// pref cannot supply.
func PaletteFor(pref Preference) Palette {
	p := DefaultPalette()
	if _, err := HexToHSL(pref.PrimaryColor); err == nil {
		p.FG = normalizeHex(pref.PrimaryColor)
		p.Muted = dimColor(p.FG, 0.5)
		p.AccentBg = MixColors(p.BG, p.FG, 0.15)
	}
	if _, err := HexToHSL(pref.SecondaryColor); err == nil {
		p.Accent = normalizeHex(pref.SecondaryColor)
	}
	return p
}

// Styles holds all lipgloss styles derived from a palette.
type Styles struct {
	Palette      Palette
	App          lipgloss.Style
	Header       lipgloss.Style
	Title        lipgloss.Style
	StatusBar    lipgloss.Style
	Item         lipgloss.Style
	ItemSelected lipgloss.Style
	ItemActive   lipgloss.Style
	Muted        lipgloss.Style
	Info         lipgloss.Style
	Warning      lipgloss.Style
	Error        lipgloss.Style
	HelpKey      lipgloss.Style
	HelpDesc     lipgloss.Style
	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style
}

// NewStyles creates styles from a preference.
func NewStyles(pref Preference) Styles {
	p := PaletteFor(pref)
	return Styles{
		Palette: p,

		App: lipgloss.NewStyle().
			Background(lipgloss.Color(p.BG)),

		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Bold(true).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)).
			Padding(0, 1),

		Item: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)),

		ItemSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Background(lipgloss.Color(p.AccentBg)).
			Bold(true),

		ItemActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),

		Info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)),

		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Warning)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Error)),

		HelpKey: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),

		HelpDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Muted)).
			Padding(0, 1),

		PanelFocused: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Accent)).
			Padding(0, 1),

		PanelTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Bold(true),
	}
}

// Swatch renders a two-cell color block followed by its label.
func Swatch(hex, label string) string {
	block := lipgloss.NewStyle().Background(lipgloss.Color(normalizeHex(hex))).Render("  ")
	return block + " " + label
}
