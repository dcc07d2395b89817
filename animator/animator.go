// Package animator drives time-based animations over a borrowed LED strip
// buffer. An Animator holds exactly one active pattern and advances it by at
// most one step per call to Update, never faster than the pattern's
// interval. It performs no blocking, owns no goroutines and is not safe for
// concurrent use.
package animator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/christmas/lib/xcolor"
)

// ErrEmptyStrip is returned by New when given a strip with no LEDs.
var ErrEmptyStrip = errors.New("animator: strip has no LEDs")

// Direction is the direction in which a pattern's step index moves.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection parses the String form of a Direction. An empty string is
// Forward.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "forward":
		return Forward, nil
	case "reverse":
		return Reverse, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// CompletionHandler is notified every time the active pattern finishes a
// full traversal of its steps. It is called synchronously from within
// Update, so it must not block. It may reconfigure the Animator.
type CompletionHandler interface {
	PatternCompleted(a *Animator)
}

// CompletionFunc adapts a function to a CompletionHandler.
type CompletionFunc func(a *Animator)

// PatternCompleted implements CompletionHandler.
func (f CompletionFunc) PatternCompleted(a *Animator) { f(a) }

// Opts are options for an Animator.
type Opts struct {
	// Clock is the time source. If nil, SystemClock is used.
	Clock Clock
	// OnComplete is the optional completion handler.
	OnComplete CompletionHandler
	// Logger is the logger to use. If nil, nothing is logged.
	Logger *slog.Logger
}

// Animator renders one pattern at a time into a strip it does not own.
type Animator struct {
	strip      leddraw.LEDStrip
	clock      Clock
	onComplete CompletionHandler
	logger     *slog.Logger

	pattern    pattern // nil when no pattern is active
	direction  Direction
	index      int
	totalSteps int
	interval   time.Duration
	lastUpdate time.Time
}

// New creates an Animator writing into strip. The strip's length is fixed
// for the lifetime of the Animator; the caller keeps ownership and is
// responsible for pushing it to hardware after each Update.
func New(strip leddraw.LEDStrip, opts Opts) (*Animator, error) {
	if len(strip) == 0 {
		return nil, ErrEmptyStrip
	}

	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Animator{
		strip:      strip,
		clock:      opts.Clock,
		onComplete: opts.OnComplete,
		logger:     opts.Logger,
	}, nil
}

// SetCompletionHandler replaces the completion handler. A nil handler
// disables completion notifications.
func (a *Animator) SetCompletionHandler(h CompletionHandler) {
	a.onComplete = h
}

// Update advances the active pattern by one step if at least the pattern's
// interval has elapsed since the previous step. It reports whether the strip
// was written to. Calling it more often than the interval is always safe.
func (a *Animator) Update() bool {
	now := a.clock.Now()
	if now.Sub(a.lastUpdate) < a.interval {
		return false
	}
	a.lastUpdate = now

	if a.pattern == nil {
		return false
	}

	a.pattern.step(a, now)
	return true
}

// Advance moves the step index one position in the current direction. When
// the index runs off either edge it wraps to the opposite edge and the
// completion handler is called, once.
func (a *Animator) Advance() {
	if a.direction == Forward {
		a.index++
		if a.index >= a.totalSteps {
			a.index = 0
			a.complete()
		}
	} else {
		a.index--
		if a.index < 0 {
			a.index = a.totalSteps - 1
			a.complete()
		}
	}
}

func (a *Animator) complete() {
	a.logger.Debug(
		"pattern completed",
		"pattern", a.Pattern())

	if a.onComplete != nil {
		a.onComplete.PatternCompleted(a)
	}
}

// ReverseDirection flips the direction and moves the index to the edge the
// new direction starts from: the last step for Reverse, the first for
// Forward.
func (a *Animator) ReverseDirection() {
	if a.direction == Forward {
		a.direction = Reverse
		a.index = a.totalSteps - 1
	} else {
		a.direction = Forward
		a.index = 0
	}
}

// SetAll writes color to every LED in the strip.
func (a *Animator) SetAll(color xcolor.RGB) {
	for i := range a.strip {
		a.strip[i] = color
	}
}

// Stop deactivates the current pattern. The strip is left as is.
func (a *Animator) Stop() {
	a.pattern = nil
	a.direction = Forward
	a.index = 0
	a.totalSteps = 0
	a.interval = 0
}

// Pattern returns the kind of the active pattern.
func (a *Animator) Pattern() Kind {
	if a.pattern == nil {
		return None
	}
	return a.pattern.kind()
}

// Direction returns the current direction.
func (a *Animator) Direction() Direction { return a.direction }

// Index returns the current step index, in [0, TotalSteps()).
func (a *Animator) Index() int { return a.index }

// TotalSteps returns the number of steps in one traversal of the active
// pattern, or 0 if no pattern is active.
func (a *Animator) TotalSteps() int { return a.totalSteps }

// Interval returns the minimum time between steps.
func (a *Animator) Interval() time.Duration { return a.interval }

// Len returns the number of LEDs in the strip.
func (a *Animator) Len() int { return len(a.strip) }

// start resets all pattern state for a newly configured pattern.
func (a *Animator) start(p pattern, totalSteps int, interval time.Duration, dir Direction) {
	a.pattern = p
	a.totalSteps = max(totalSteps, 1)
	a.interval = interval
	a.direction = dir

	a.index = 0
	if dir == Reverse {
		a.index = a.totalSteps - 1
	}

	a.logger.Debug(
		"pattern configured",
		"pattern", p.kind(),
		"interval", interval,
		"total_steps", a.totalSteps,
		"direction", dir)
}
