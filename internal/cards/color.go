package cards

import (
	"image/color"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor reads any CSS color: hex, rgb()/rgba(), hsl()/hwb() or a named color.
// Unparseable input yields black.
func ParseColor(s string) color.NRGBA {
	black := color.NRGBA{A: 255}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return black
	}
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return black
	}
	return color.NRGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: channel(c.A)}
}

// channel maps a 0..1 component to a byte, clamping out-of-range input.
func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
