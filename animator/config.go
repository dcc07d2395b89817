package animator

import (
	"errors"
	"fmt"
	"time"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/patternd/lib8"
)

// ErrUnknownPattern is returned when a pattern name or Kind is not known.
var ErrUnknownPattern = errors.New("unknown pattern")

// PatternConfig describes any pattern as a value, for callers that pick
// patterns at runtime. Fields a Kind does not use are ignored.
type PatternConfig struct {
	Kind      Kind
	Interval  time.Duration
	Direction Direction

	// Color1 is the primary color of TheaterChase, ColorWipe and Scanner, and
	// the starting color of Fade.
	Color1 xcolor.RGB
	// Color2 is the TheaterChase background and the Fade target.
	Color2 xcolor.RGB
	// Steps is the Fade length.
	Steps int

	Palette    lib8.Palette16
	Blend      lib8.BlendType
	Brightness uint8
	// SpeedChangeInterval defaults to DefaultSpeedChangeInterval if zero.
	SpeedChangeInterval time.Duration
	// MaxSpeed defaults to DefaultMaxSpeed if zero.
	MaxSpeed uint8
}

// Configure starts the pattern described by cfg, as if the matching
// configure method had been called.
func (a *Animator) Configure(cfg PatternConfig) error {
	switch cfg.Kind {
	case None:
		a.Stop()
	case RainbowCycle:
		a.RainbowCycle(cfg.Interval, cfg.Direction)
	case TheaterChase:
		a.TheaterChase(cfg.Color1, cfg.Color2, cfg.Interval, cfg.Direction)
	case ColorWipe:
		a.ColorWipe(cfg.Color1, cfg.Interval, cfg.Direction)
	case Scanner:
		a.Scanner(cfg.Color1, cfg.Interval)
	case Cylon:
		a.Cylon(cfg.Interval)
	case Fade:
		a.Fade(cfg.Color1, cfg.Color2, cfg.Steps, cfg.Interval, cfg.Direction)
	case MovingPalette:
		var opts []PaletteOption
		if cfg.SpeedChangeInterval > 0 {
			opts = append(opts, WithSpeedChangeInterval(cfg.SpeedChangeInterval))
		}
		if cfg.MaxSpeed > 0 {
			opts = append(opts, WithMaxSpeed(cfg.MaxSpeed))
		}
		a.MovingPalette(cfg.Palette, cfg.Blend, cfg.Brightness, cfg.Interval, cfg.Direction, opts...)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownPattern, cfg.Kind)
	}
	return nil
}
