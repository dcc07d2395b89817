package lib8

import (
	"fmt"
	"math"
	"sort"

	"dev.acmcsuf.com/christmas/lib/xcolor"
)

// BlendType controls how Palette16 lookups between two entries behave.
type BlendType uint8

const (
	// NoBlend snaps every index to the entry at or below it.
	NoBlend BlendType = iota
	// LinearBlend mixes adjacent entries by the low nibble of the index.
	LinearBlend
)

// String implements fmt.Stringer.
func (b BlendType) String() string {
	switch b {
	case NoBlend:
		return "none"
	case LinearBlend:
		return "linear"
	default:
		return fmt.Sprintf("BlendType(%d)", uint8(b))
	}
}

// ParseBlendType parses the String form of a BlendType. An empty string is
// LinearBlend.
func ParseBlendType(s string) (BlendType, error) {
	switch s {
	case "", "linear":
		return LinearBlend, nil
	case "none":
		return NoBlend, nil
	default:
		return 0, fmt.Errorf("unknown blend type %q", s)
	}
}

// Palette16 is a 16-entry color palette addressed by an 8-bit index. Each
// entry covers 16 consecutive indices.
type Palette16 [16]xcolor.RGB

// ColorAt returns the palette color at index. The upper nibble of index
// picks the entry; with LinearBlend the lower nibble blends toward the
// following entry, wrapping from the last entry back to the first. The
// result is then scaled by brightness using Scale8Video; 255 is full
// brightness.
func (p *Palette16) ColorAt(index, brightness uint8, blend BlendType) xcolor.RGB {
	hi4 := index >> 4
	lo4 := index & 0x0F

	c := p[hi4]
	if blend == LinearBlend && lo4 != 0 {
		c = Lerp8(c, p[(hi4+1)&0x0F], lo4<<4)
	}

	if brightness != 255 {
		c.R = Scale8Video(c.R, brightness)
		c.G = Scale8Video(c.G, brightness)
		c.B = Scale8Video(c.B, brightness)
	}

	return c
}

// ParsePalette builds a palette from 1 to 16 "#rrggbb" stops spread evenly
// over the 16 entries. Entries that fall between two stops are blended in
// RGB space.
func ParsePalette(stops ...string) (Palette16, error) {
	var p Palette16

	if len(stops) == 0 || len(stops) > len(p) {
		return p, fmt.Errorf("palette needs 1 to %d stops, got %d", len(p), len(stops))
	}

	colors := make([]xcolor.RGB, len(stops))
	for i, s := range stops {
		c, err := ParseHex(s)
		if err != nil {
			return p, fmt.Errorf("failed to parse palette stop %d: %w", i, err)
		}
		colors[i] = c
	}

	if len(colors) == 1 {
		for i := range p {
			p[i] = colors[0]
		}
		return p, nil
	}

	span := float64(len(colors) - 1)
	for i := range p {
		pos := float64(i) / float64(len(p)-1) * span
		lo := int(math.Floor(pos))
		if lo >= len(colors)-1 {
			p[i] = colors[len(colors)-1]
			continue
		}
		frac := pos - float64(lo)
		p[i] = FromColorful(ToColorful(colors[lo]).BlendRgb(ToColorful(colors[lo+1]), frac))
	}

	return p, nil
}

// NamedPalette returns one of the built-in palettes.
func NamedPalette(name string) (Palette16, bool) {
	p, ok := namedPalettes[name]
	return p, ok
}

// PaletteNames lists the built-in palettes in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(namedPalettes))
	for name := range namedPalettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
