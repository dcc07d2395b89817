package lib8

import "dev.acmcsuf.com/christmas/lib/xcolor"

func hex(v uint32) xcolor.RGB {
	return xcolor.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

func palette(vs ...uint32) Palette16 {
	var p Palette16
	for i, v := range vs {
		p[i] = hex(v)
	}
	return p
}

var namedPalettes = map[string]Palette16{
	"rainbow": palette(
		0xFF0000, 0xD52A00, 0xAB5500, 0xAB7F00,
		0xABAB00, 0x56D500, 0x00FF00, 0x00D52A,
		0x00AB55, 0x0056AA, 0x0000FF, 0x2A00D5,
		0x5500AB, 0x7F0081, 0xAB0055, 0xD5002B,
	),
	"party": palette(
		0x5500AB, 0x84007C, 0xB5004B, 0xE5001B,
		0xE81700, 0xB84700, 0xAB7700, 0xABAB00,
		0xAB5500, 0xDD2200, 0xF2000E, 0xC2003E,
		0x8F0071, 0x5F00A1, 0x2F00D0, 0x0007F9,
	),
	"cloud": palette(
		0x0000FF, 0x00008B, 0x00008B, 0x00008B,
		0x00008B, 0x00008B, 0x00008B, 0x00008B,
		0x0000FF, 0x00008B, 0x87CEEB, 0x87CEEB,
		0xADD8E6, 0xFFFFFF, 0xADD8E6, 0x87CEEB,
	),
	"lava": palette(
		0x000000, 0x800000, 0x000000, 0x800000,
		0x8B0000, 0x8B0000, 0x800000, 0x8B0000,
		0x8B0000, 0x8B0000, 0xFF0000, 0xFFA500,
		0xFFFFFF, 0xFFA500, 0xFF0000, 0x8B0000,
	),
	"ocean": palette(
		0x191970, 0x00008B, 0x191970, 0x000080,
		0x00008B, 0x0000CD, 0x2E8B57, 0x008080,
		0x5F9EA0, 0x0000FF, 0x008B8B, 0x6495ED,
		0x7FFFD4, 0x2E8B57, 0x00FFFF, 0x87CEFA,
	),
	"forest": palette(
		0x006400, 0x006400, 0x556B2F, 0x006400,
		0x008000, 0x228B22, 0x6B8E23, 0x008000,
		0x2E8B57, 0x66CDAA, 0x32CD32, 0x9ACD32,
		0x90EE90, 0x7CFC00, 0x66CDAA, 0x228B22,
	),
	"heat": palette(
		0x000000, 0x330000, 0x660000, 0x990000,
		0xCC0000, 0xFF0000, 0xFF3300, 0xFF6600,
		0xFF9900, 0xFFCC00, 0xFFFF00, 0xFFFF33,
		0xFFFF66, 0xFFFF99, 0xFFFFCC, 0xFFFFFF,
	),
}
