// Package theme converts segment visual preferences into applied presentation
// state. It owns the hex to HSL conversion used by the CSS-variable theme,
// typography and icon-style class selection, layout priority ordering, user
// theme overrides read from TOML/INI files, and the lipgloss styles used by
// the terminal settings screen.
package theme

import (
	"fmt"
	"slices"
)

// Typography selects the font family class applied to the document root.
type Typography string

const (
	TypographySerif       Typography = "serif"
	TypographySans        Typography = "sans-serif"
	TypographyHandwritten Typography = "handwritten"
)

// IconStyle selects the icon set variant.
type IconStyle string

const (
	IconOutlined IconStyle = "outlined"
	IconFilled   IconStyle = "filled"
	IconDuotone  IconStyle = "duotone"
)

// Preference is the visual preference of a segment: colors, typography,
// icon style and the order in which dashboard sections are laid out.
type Preference struct {
	PrimaryColor     string     `json:"primaryColor"     toml:"primary_color"`
	SecondaryColor   string     `json:"secondaryColor"   toml:"secondary_color"`
	Typography       Typography `json:"typography"       toml:"typography"`
	IconStyle        IconStyle  `json:"iconStyle"        toml:"icon_style"`
	LayoutPriorities []string   `json:"layoutPriorities" toml:"layout_priorities"`
}

// ParseTypography accepts the canonical names plus "sans" as shorthand.
func ParseTypography(raw string) (Typography, error) {
	switch Typography(raw) {
	case TypographySerif, TypographySans, TypographyHandwritten:
		return Typography(raw), nil
	case "sans":
		return TypographySans, nil
	}
	return "", fmt.Errorf("unknown typography %q", raw)
}

func ParseIconStyle(raw string) (IconStyle, error) {
	switch IconStyle(raw) {
	case IconOutlined, IconFilled, IconDuotone:
		return IconStyle(raw), nil
	}
	return "", fmt.Errorf("unknown icon style %q", raw)
}

// Validate checks both colors and the enumerated fields.
func (p Preference) Validate() error {
	if _, err := HexToHSL(p.PrimaryColor); err != nil {
		return fmt.Errorf("primary color: %w", err)
	}
	if _, err := HexToHSL(p.SecondaryColor); err != nil {
		return fmt.Errorf("secondary color: %w", err)
	}
	if _, err := ParseTypography(string(p.Typography)); err != nil {
		return err
	}
	if _, err := ParseIconStyle(string(p.IconStyle)); err != nil {
		return err
	}
	return nil
}

// Normalized returns a copy in canonical form: colors as upper-case
// "#RRGGBB", typography aliases resolved and layout priorities deduplicated.
// Fields that do not parse are left as they are for Validate to reject.
func (p Preference) Normalized() Preference {
	out := p.Clone()
	if v := normalizeHex(out.PrimaryColor); validHex(v) {
		out.PrimaryColor = v
	}
	if v := normalizeHex(out.SecondaryColor); validHex(v) {
		out.SecondaryColor = v
	}
	if t, err := ParseTypography(string(out.Typography)); err == nil {
		out.Typography = t
	}
	out.LayoutPriorities = DedupeLayoutPriorities(out.LayoutPriorities)
	return out
}

func (p Preference) Clone() Preference {
	out := p
	if p.LayoutPriorities != nil {
		out.LayoutPriorities = slices.Clone(p.LayoutPriorities)
	}
	return out
}

func (p Preference) Equal(o Preference) bool {
	return p.PrimaryColor == o.PrimaryColor &&
		p.SecondaryColor == o.SecondaryColor &&
		p.Typography == o.Typography &&
		p.IconStyle == o.IconStyle &&
		slices.Equal(p.LayoutPriorities, o.LayoutPriorities)
}
