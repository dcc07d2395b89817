// Package lib8 contains 8-bit color math for LED strips. All functions work
// in fixed point on uint8 channels and truncate toward zero unless noted.
package lib8

import "dev.acmcsuf.com/christmas/lib/xcolor"

// Scale8 scales i by the fraction scale/256, computed as
// (i * (scale+1)) >> 8 so that a scale of 255 is the identity.
func Scale8(i, scale uint8) uint8 {
	return uint8((uint16(i) * (1 + uint16(scale))) >> 8)
}

// Scale8Video is Scale8, except a nonzero input scaled by a nonzero scale
// never becomes zero. Use it for brightness so dim pixels stay lit.
func Scale8Video(i, scale uint8) uint8 {
	j := Scale8(i, scale)
	if j == 0 && i != 0 && scale != 0 {
		return 1
	}
	return j
}

// Triwave8 is a triangle wave over one byte of phase: it rises from 0 at
// phase 0 to 254 at phase 127, then falls back to 0 as phase nears 256.
func Triwave8(in uint8) uint8 {
	if in&0x80 != 0 {
		in = 255 - in
	}
	return in << 1
}

// Nscale8 scales every channel of c toward black by scale/256.
func Nscale8(c xcolor.RGB, scale uint8) xcolor.RGB {
	return xcolor.RGB{
		R: Scale8(c.R, scale),
		G: Scale8(c.G, scale),
		B: Scale8(c.B, scale),
	}
}

// Lerp8 mixes a and b channel-wise. frac 0 yields a; frac 255 yields b
// minus at most one unit of truncation per channel.
func Lerp8(a, b xcolor.RGB, frac uint8) xcolor.RGB {
	keep := 255 - frac
	return xcolor.RGB{
		R: Scale8(a.R, keep) + Scale8(b.R, frac),
		G: Scale8(a.G, keep) + Scale8(b.G, frac),
		B: Scale8(a.B, keep) + Scale8(b.B, frac),
	}
}
