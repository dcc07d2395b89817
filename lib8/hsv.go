package lib8

import (
	"dev.acmcsuf.com/christmas/lib/xcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// HSV builds a color from an 8-bit hue, saturation and value. The hue wheel
// spans 0-255, so 256 would wrap back to red.
func HSV(h, s, v uint8) xcolor.RGB {
	c := colorful.Hsv(float64(h)*360/256, float64(s)/255, float64(v)/255)
	return FromColorful(c)
}

// FromColorful clamps c into the sRGB gamut and converts it to 8-bit
// channels.
func FromColorful(c colorful.Color) xcolor.RGB {
	r, g, b := c.Clamped().RGB255()
	return xcolor.RGB{R: r, G: g, B: b}
}

// ToColorful converts an 8-bit color into a go-colorful color.
func ToColorful(c xcolor.RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// ParseHex parses a "#rrggbb" color.
func ParseHex(s string) (xcolor.RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return xcolor.RGB{}, err
	}
	return FromColorful(c), nil
}
