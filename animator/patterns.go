package animator

import (
	"fmt"
	"time"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/patternd/lib8"
)

// Kind identifies a pattern.
type Kind uint8

const (
	None Kind = iota
	RainbowCycle
	TheaterChase
	ColorWipe
	Scanner
	Cylon
	Fade
	MovingPalette
)

var kindNames = [...]string{
	None:          "none",
	RainbowCycle:  "rainbow-cycle",
	TheaterChase:  "theater-chase",
	ColorWipe:     "color-wipe",
	Scanner:       "scanner",
	Cylon:         "cylon",
	Fade:          "fade",
	MovingPalette: "moving-palette",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns every Kind other than None.
func Kinds() []Kind {
	return []Kind{RainbowCycle, TheaterChase, ColorWipe, Scanner, Cylon, Fade, MovingPalette}
}

// ParseKind parses the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}

// pattern is the state of one active pattern. step renders one frame into
// the Animator's strip and then advances it.
type pattern interface {
	kind() Kind
	step(a *Animator, now time.Time)
}

// scannerDecay is the per-step trail fade for Scanner and Cylon, as a
// fraction of 256.
const scannerDecay = 250

// RainbowCycle configures a full-spectrum rainbow spread over the strip that
// rotates one wheel position per step.
func (a *Animator) RainbowCycle(interval time.Duration, dir Direction) {
	a.start(&rainbowCycle{}, 256, interval, dir)
}

type rainbowCycle struct{}

func (p *rainbowCycle) kind() Kind { return RainbowCycle }

func (p *rainbowCycle) step(a *Animator, now time.Time) {
	n := len(a.strip)
	for i := range a.strip {
		a.strip[i] = Wheel(uint8((i*256/n + a.index) & 255))
	}
	a.Advance()
}

// TheaterChase configures a chase where every third LED is color1 and the
// rest are color2, shifting one LED per step.
func (a *Animator) TheaterChase(color1, color2 xcolor.RGB, interval time.Duration, dir Direction) {
	a.start(&theaterChase{color1: color1, color2: color2}, len(a.strip), interval, dir)
}

type theaterChase struct {
	color1, color2 xcolor.RGB
}

func (p *theaterChase) kind() Kind { return TheaterChase }

func (p *theaterChase) step(a *Animator, now time.Time) {
	for i := range a.strip {
		if (i+a.index)%3 == 0 {
			a.strip[i] = p.color1
		} else {
			a.strip[i] = p.color2
		}
	}
	a.Advance()
}

// ColorWipe configures a fill that sets one more LED to color per step. The
// strip is not cleared, so earlier LEDs keep their color.
func (a *Animator) ColorWipe(color xcolor.RGB, interval time.Duration, dir Direction) {
	a.start(&colorWipe{color: color}, len(a.strip), interval, dir)
}

type colorWipe struct {
	color xcolor.RGB
}

func (p *colorWipe) kind() Kind { return ColorWipe }

func (p *colorWipe) step(a *Animator, now time.Time) {
	a.strip[a.index] = p.color
	a.Advance()
}

// Scanner configures two eyes of color sweeping to the ends of the strip and
// back, leaving a fading trail.
func (a *Animator) Scanner(color xcolor.RGB, interval time.Duration) {
	a.start(&scanner{color: color}, 2*(len(a.strip)-1), interval, Forward)
}

type scanner struct {
	color xcolor.RGB
}

func (p *scanner) kind() Kind { return Scanner }

func (p *scanner) step(a *Animator, now time.Time) {
	sweep(a, func() xcolor.RGB { return p.color })
	a.Advance()
}

// Cylon configures the Scanner sweep with eyes whose hue shifts every time
// an eye is drawn.
func (a *Animator) Cylon(interval time.Duration) {
	a.start(&cylon{}, 2*(len(a.strip)-1), interval, Forward)
}

type cylon struct {
	hue uint8
}

func (p *cylon) kind() Kind { return Cylon }

func (p *cylon) step(a *Animator, now time.Time) {
	sweep(a, func() xcolor.RGB {
		c := lib8.HSV(p.hue, 255, 255)
		p.hue++
		return c
	})
	a.Advance()
}

// sweep draws the eye at the step index and its mirror across the bounce
// point, and fades every other LED.
func sweep(a *Animator, eye func() xcolor.RGB) {
	for i := range a.strip {
		switch i {
		case a.index, a.totalSteps - a.index:
			a.strip[i] = eye()
		default:
			a.strip[i] = lib8.Nscale8(a.strip[i], scannerDecay)
		}
	}
}

// Fade configures a uniform crossfade from color1 to color2 over steps
// steps. A steps value below 1 is treated as 1.
func (a *Animator) Fade(color1, color2 xcolor.RGB, steps int, interval time.Duration, dir Direction) {
	a.start(&fade{color1: color1, color2: color2}, max(steps, 1), interval, dir)
}

type fade struct {
	color1, color2 xcolor.RGB
}

func (p *fade) kind() Kind { return Fade }

func (p *fade) step(a *Animator, now time.Time) {
	total, index := a.totalSteps, a.index

	// Multiply before dividing so the only truncation is the final
	// division; the result is the floor of the exact interpolation.
	mix := func(c1, c2 uint8) uint8 {
		return uint8((int(c1)*(total-index) + int(c2)*index) / total)
	}

	a.SetAll(xcolor.RGB{
		R: mix(p.color1.R, p.color2.R),
		G: mix(p.color1.G, p.color2.G),
		B: mix(p.color1.B, p.color2.B),
	})
	a.Advance()
}

// Defaults for MovingPalette.
const (
	DefaultSpeedChangeInterval = 10 * time.Millisecond
	DefaultMaxSpeed            = 20
)

// PaletteOption tunes a MovingPalette.
type PaletteOption func(*movingPalette)

// WithSpeedChangeInterval sets how often the palette speed is recomputed.
func WithSpeedChangeInterval(d time.Duration) PaletteOption {
	return func(p *movingPalette) { p.speedChangeInterval = d }
}

// WithMaxSpeed sets the peak palette speed, in palette indices per step. A
// max speed of 0 holds the palette still.
func WithMaxSpeed(speed uint8) PaletteOption {
	return func(p *movingPalette) { p.maxSpeed = speed }
}

// MovingPalette configures a palette scrolling along the strip. Its speed
// follows a triangle wave between 0 and the max speed, and each time the
// speed bottoms out the scroll direction flips.
func (a *Animator) MovingPalette(
	palette lib8.Palette16, blend lib8.BlendType, brightness uint8,
	interval time.Duration, dir Direction, opts ...PaletteOption) {

	p := &movingPalette{
		palette:             palette,
		blend:               blend,
		brightness:          brightness,
		speedChangeInterval: DefaultSpeedChangeInterval,
		maxSpeed:            DefaultMaxSpeed,
		speed:               1,
		canReverse:          true,
	}
	for _, opt := range opts {
		opt(p)
	}

	a.start(p, 256, interval, dir)
}

type movingPalette struct {
	palette    lib8.Palette16
	blend      lib8.BlendType
	brightness uint8

	speedChangeInterval time.Duration
	lastSpeedChange     time.Time
	maxSpeed            uint8
	speed               uint8
	theta               uint8
	// canReverse is cleared when the speed hits zero and set again once it
	// rises, so a single zero crossing reverses only once.
	canReverse bool
	startIndex uint8
}

func (p *movingPalette) kind() Kind { return MovingPalette }

func (p *movingPalette) step(a *Animator, now time.Time) {
	if now.Sub(p.lastSpeedChange) >= p.speedChangeInterval {
		speed := lib8.Scale8(lib8.Triwave8(p.theta), p.maxSpeed)
		switch {
		case speed == 0 && p.canReverse:
			a.ReverseDirection()
			p.speed = 1
			p.canReverse = false
		case speed > 0:
			p.speed = speed
			p.canReverse = true
		}
		p.theta++
		p.lastSpeedChange = now
	}

	if a.direction == Forward {
		p.startIndex += p.speed
	} else {
		p.startIndex -= p.speed
	}

	colorIndex := p.startIndex
	for i := range a.strip {
		a.strip[i] = p.palette.ColorAt(colorIndex, p.brightness, p.blend)
		colorIndex += 3
	}
	a.Advance()
}

// Wheel maps a position on a 256-step color wheel to a fully saturated
// color. The wheel runs red, blue, green and back to red in three 85-step
// bands, so Wheel(0) and Wheel(255) are both pure red.
func Wheel(pos uint8) xcolor.RGB {
	pos = 255 - pos
	switch {
	case pos < 85:
		return xcolor.RGB{R: 255 - pos*3, B: pos * 3}
	case pos < 170:
		pos -= 85
		return xcolor.RGB{G: pos * 3, B: 255 - pos*3}
	default:
		pos -= 170
		return xcolor.RGB{R: pos * 3, G: 255 - pos*3}
	}
}
