package lib8

import (
	"testing"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"github.com/google/go-cmp/cmp"
)

func TestScale8(t *testing.T) {
	tests := []struct {
		i, scale uint8
		want     uint8
		wantVid  uint8
	}{
		{255, 255, 255, 255},
		{255, 0, 0, 0},
		{128, 128, 64, 64},
		{0, 200, 0, 0},
		{1, 1, 0, 1},
		{250, 250, 245, 245},
	}

	for _, test := range tests {
		assertEq(t, test.want, Scale8(test.i, test.scale))
		assertEq(t, test.wantVid, Scale8Video(test.i, test.scale))
	}
}

func TestTriwave8(t *testing.T) {
	tests := map[uint8]uint8{
		0:   0,
		1:   2,
		64:  128,
		127: 254,
		128: 254,
		192: 126,
		255: 0,
	}

	for in, want := range tests {
		if got := Triwave8(in); got != want {
			t.Errorf("Triwave8(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNscale8(t *testing.T) {
	got := Nscale8(xcolor.RGB{R: 255, G: 255, B: 255}, 250)
	assertEq(t, xcolor.RGB{R: 250, G: 250, B: 250}, got)

	got = Nscale8(xcolor.RGB{R: 10, G: 0, B: 1}, 0)
	assertEq(t, xcolor.RGB{}, got)
}

func TestLerp8(t *testing.T) {
	a := xcolor.RGB{R: 200, G: 10, B: 0}
	b := xcolor.RGB{R: 0, G: 250, B: 100}

	assertEq(t, a, Lerp8(a, b, 0))

	mid := Lerp8(xcolor.RGB{R: 255}, xcolor.RGB{G: 255}, 128)
	assertEq(t, xcolor.RGB{R: 127, G: 128}, mid)
}

func TestHSV(t *testing.T) {
	assertEq(t, xcolor.RGB{R: 255}, HSV(0, 255, 255))
	assertEq(t, xcolor.RGB{R: 255, G: 255, B: 255}, HSV(100, 0, 255))
	assertEq(t, xcolor.RGB{}, HSV(42, 255, 0))
}

func TestPaletteColorAt(t *testing.T) {
	rainbow, ok := NamedPalette("rainbow")
	if !ok {
		t.Fatal("rainbow palette missing")
	}

	tests := []struct {
		name       string
		index      uint8
		brightness uint8
		blend      BlendType
		want       xcolor.RGB
	}{
		{"first entry", 0, 255, LinearBlend, xcolor.RGB{R: 255}},
		{"second entry", 16, 255, LinearBlend, xcolor.RGB{R: 0xD5, G: 0x2A}},
		{"halfway blended", 8, 255, LinearBlend, xcolor.RGB{R: 234, G: 21}},
		{"halfway stepped", 8, 255, NoBlend, xcolor.RGB{R: 255}},
		{"wraps to first entry", 255, 255, LinearBlend, xcolor.RGB{R: 253, B: 2}},
		{"half brightness", 0, 128, NoBlend, xcolor.RGB{R: 128}},
		{"zero brightness", 0, 0, NoBlend, xcolor.RGB{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := rainbow.ColorAt(test.index, test.brightness, test.blend)
			assertEq(t, test.want, got)
		})
	}
}

func TestParsePalette(t *testing.T) {
	t.Run("single stop", func(t *testing.T) {
		p, err := ParsePalette("#102030")
		if err != nil {
			t.Fatal(err)
		}
		for i, c := range p {
			if c != (xcolor.RGB{R: 0x10, G: 0x20, B: 0x30}) {
				t.Errorf("entry %d = %v", i, c)
			}
		}
	})

	t.Run("gradient", func(t *testing.T) {
		p, err := ParsePalette("#000000", "#ffffff")
		if err != nil {
			t.Fatal(err)
		}
		assertEq(t, xcolor.RGB{}, p[0])
		assertEq(t, xcolor.RGB{R: 255, G: 255, B: 255}, p[15])
		if p[7].R <= p[6].R {
			t.Errorf("gradient is not increasing: %v then %v", p[6], p[7])
		}
	})

	for _, stops := range [][]string{
		nil,
		make([]string, 17),
		{"#000000", "nope"},
	} {
		if _, err := ParsePalette(stops...); err == nil {
			t.Errorf("ParsePalette(%q) succeeded, want error", stops)
		}
	}
}

func TestPaletteNames(t *testing.T) {
	want := []string{"cloud", "forest", "heat", "lava", "ocean", "party", "rainbow"}
	assertEq(t, want, PaletteNames())
}

func TestParseBlendType(t *testing.T) {
	for _, b := range []BlendType{NoBlend, LinearBlend} {
		got, err := ParseBlendType(b.String())
		if err != nil {
			t.Fatal(err)
		}
		assertEq(t, b, got)
	}

	if _, err := ParseBlendType("cubic"); err == nil {
		t.Error("expected error for unknown blend type")
	}
}

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}
