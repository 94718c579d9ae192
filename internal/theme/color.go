package theme

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// hexColorRegex matches exactly six hex digits with an optional leading '#'.
var hexColorRegex = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// InvalidColorError reports a theme color that is not a 6-digit hex value.
type InvalidColorError struct {
	Value string
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid color %q: want #RRGGBB", e.Value)
}

// HSL is a color in hue (degrees) / saturation / lightness (percent) form.
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// String renders the triple the way CSS variables consume it: "258 90% 66%".
func (c HSL) String() string {
	return fmt.Sprintf("%d %d%% %d%%", c.H, c.S, c.L)
}

// HexToHSL converts "#RRGGBB" (leading '#' optional) to rounded HSL.
//
// Hue comes from whichever channel is the maximum (red first, then green),
// is scaled by 60 and rounded before wrapping into [0,360). Saturation and
// lightness are rounded to whole percents.
func HexToHSL(hex string) (HSL, error) {
	if !hexColorRegex.MatchString(hex) {
		return HSL{}, &InvalidColorError{Value: hex}
	}
	c, err := colorful.Hex("#" + strings.TrimPrefix(hex, "#"))
	if err != nil {
		return HSL{}, &InvalidColorError{Value: hex}
	}
	r8, g8, b8 := c.RGB255()
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l := (maxC + minC) / 2

	var h, s float64
	if maxC != minC {
		d := maxC - minC
		if l > 0.5 {
			s = d / (2 - maxC - minC)
		} else {
			s = d / (maxC + minC)
		}
		switch maxC {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
	}

	return HSL{
		H: int(math.Round(h*60)) % 360,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}, nil
}

// normalizeHex brings user-supplied colors into #RRGGBB form. It accepts
// 0xRRGGBB, a missing '#', and the #RGB shorthand; anything else is returned
// trimmed and left for HexToHSL to reject.
func normalizeHex(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return ""
	}

	if strings.HasPrefix(color, "0x") || strings.HasPrefix(color, "0X") {
		color = "#" + color[2:]
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}

	if hexColorRegex.MatchString(color) {
		return strings.ToUpper(color)
	}
	if len(color) == 4 {
		if c, err := colorful.Hex(color); err == nil {
			return strings.ToUpper(c.Hex())
		}
	}
	return color
}

func validHex(color string) bool {
	return hexColorRegex.MatchString(color)
}

// dimColor scales a color's channels toward black.
func dimColor(hex string, factor float64) string {
	c, err := colorful.Hex(normalizeHex(hex))
	if err != nil {
		return hex
	}
	return colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor}.Clamped().Hex()
}

// MixColors blends two colors in RGB space; t=0 yields hex1, t=1 yields hex2.
func MixColors(hex1, hex2 string, t float64) string {
	c1, err := colorful.Hex(normalizeHex(hex1))
	if err != nil {
		return hex1
	}
	c2, err := colorful.Hex(normalizeHex(hex2))
	if err != nil {
		return hex1
	}
	return c1.BlendRgb(c2, t).Clamped().Hex()
}
