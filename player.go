package patternd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/patternd/animator"
	"dev.acmcsuf.com/patternd/show"
	"gopkg.in/typ.v4/sync2"
)

// ErrNoShow is returned by Player.Next when the player has no show.
var ErrNoShow = errors.New("player has no show")

// DefaultPollInterval is how often the player polls the animator unless
// told otherwise. It bounds the timing resolution of every pattern.
const DefaultPollInterval = time.Millisecond

// PlayerOpts are options for a player.
type PlayerOpts struct {
	// Strip is the LED buffer to render into. The player takes ownership.
	Strip leddraw.LEDStrip
	// Output receives every rendered frame. If nil, frames are only
	// published to subscribers.
	Output Output
	// Show is the optional playlist to start with.
	Show *show.Show
	// Clock is passed to the animator. If nil, the system clock is used.
	Clock animator.Clock
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Logger is the logger to use for the player.
	Logger *slog.Logger
}

// EventType is the type of a player Event.
type EventType string

const (
	// EventFrame is published after every rendered frame.
	EventFrame EventType = "frame"
	// EventPattern is published when the active pattern or show step
	// changes.
	EventPattern EventType = "pattern"
	// EventComplete is published when the active pattern completes a
	// traversal.
	EventComplete EventType = "complete"
)

// Event is published by the player to its subscribers.
type Event struct {
	Type    EventType
	Seq     uint64
	Pattern animator.Kind
	// Step is the show step index, or -1 if no show step is playing.
	Step int
	// LEDs is a copy of the strip, set only for EventFrame.
	LEDs leddraw.LEDStrip
}

// Status is a snapshot of the player.
type Status struct {
	Pattern    string        `json:"pattern"`
	Direction  string        `json:"direction"`
	Index      int           `json:"index"`
	TotalSteps int           `json:"total_steps"`
	Interval   time.Duration `json:"interval"`
	Step       int           `json:"step"`
	Paused     bool          `json:"paused"`
	Frames     uint64        `json:"frames"`
}

type command struct {
	fn    func(p *Player) error
	reply chan error
}

type subscription struct {
	ch    chan Event
	types []EventType
}

// Player runs an animator against a strip. The animator is only ever
// touched from the goroutine running Run; other goroutines talk to it
// through commands.
type Player struct {
	opts     PlayerOpts
	anim     *animator.Animator
	logger   *slog.Logger
	commands chan command
	subs     sync2.Map[*subscription, struct{}]

	// owned by the Run goroutine
	held      bool
	paused    bool
	seq       uint64
	lastKind  animator.Kind
	lastStep  int
	completed bool
}

var _ animator.CompletionHandler = (*Player)(nil)

// NewPlayer creates a player. If opts.Show is set, its first step is
// configured right away.
func NewPlayer(opts PlayerOpts) (*Player, error) {
	if opts.Output == nil {
		opts.Output = discardOutput{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Player{
		opts:     opts,
		logger:   opts.Logger,
		commands: make(chan command),
		lastStep: -1,
	}

	anim, err := animator.New(opts.Strip, animator.Opts{
		Clock:      opts.Clock,
		OnComplete: p,
		Logger:     opts.Logger.With("component", "animator"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create animator: %w", err)
	}
	p.anim = anim

	if opts.Show != nil {
		if err := opts.Show.Start(anim); err != nil {
			return nil, fmt.Errorf("failed to start show: %w", err)
		}
	} else {
		p.held = true
	}

	return p, nil
}

// Len returns the number of LEDs driven by the player.
func (p *Player) Len() int { return len(p.opts.Strip) }

// Run polls the animator until ctx is canceled. It must be called at most
// once.
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	p.checkPattern()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-p.commands:
			cmd.reply <- cmd.fn(p)
			p.checkPattern()

		case <-ticker.C:
			if p.paused {
				continue
			}
			if p.anim.Update() {
				p.flush()
			}
			p.checkPattern()
		}
	}
}

// PatternCompleted implements animator.CompletionHandler. It is called from
// within Update on the Run goroutine.
func (p *Player) PatternCompleted(a *animator.Animator) {
	p.completed = true
	if !p.held && p.opts.Show != nil {
		p.opts.Show.PatternCompleted(a)
	}
}

func (p *Player) flush() {
	p.seq++

	if err := p.opts.Output.SetLEDs(p.opts.Strip); err != nil {
		p.logger.Error(
			"error writing LED strip",
			"error", err)
	}

	p.publish(Event{
		Type:    EventFrame,
		Seq:     p.seq,
		Pattern: p.anim.Pattern(),
		Step:    p.step(),
		LEDs:    slices.Clone(p.opts.Strip),
	})
}

func (p *Player) step() int {
	if p.held || p.opts.Show == nil {
		return -1
	}
	idx, _ := p.opts.Show.Current()
	return idx
}

// checkPattern publishes completion and pattern change events that happened
// since the last check.
func (p *Player) checkPattern() {
	kind, step := p.anim.Pattern(), p.step()

	if p.completed {
		p.completed = false
		p.publish(Event{Type: EventComplete, Seq: p.seq, Pattern: p.lastKind, Step: p.lastStep})
	}

	if kind != p.lastKind || step != p.lastStep {
		p.lastKind, p.lastStep = kind, step

		p.logger.Info(
			"pattern changed",
			"pattern", kind,
			"step", step)

		p.publish(Event{Type: EventPattern, Seq: p.seq, Pattern: kind, Step: step})
	}
}

func (p *Player) publish(ev Event) {
	p.subs.Range(func(sub *subscription, _ struct{}) bool {
		if !slices.Contains(sub.types, ev.Type) {
			return true
		}
		select {
		case sub.ch <- ev:
		default:
			// Slow subscribers miss events rather than stall the strip.
		}
		return true
	})
}

// Subscribe returns a channel receiving events of the given types, or of
// every type if none are given. Events are dropped for subscribers that do
// not keep up. The returned function unsubscribes; the channel is not
// closed.
func (p *Player) Subscribe(types ...EventType) (<-chan Event, func()) {
	if len(types) == 0 {
		types = []EventType{EventFrame, EventPattern, EventComplete}
	}

	sub := &subscription{
		ch:    make(chan Event, 8),
		types: types,
	}
	p.subs.Store(sub, struct{}{})

	return sub.ch, func() { p.subs.Delete(sub) }
}

func (p *Player) do(ctx context.Context, fn func(p *Player) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.commands <- cmd:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-cmd.reply:
		return err
	}
}

// Select plays cfg until the show is resumed with Next.
func (p *Player) Select(ctx context.Context, cfg animator.PatternConfig) error {
	return p.do(ctx, func(p *Player) error {
		if err := p.anim.Configure(cfg); err != nil {
			return err
		}
		p.held = true
		return nil
	})
}

// Next resumes the show at its next step.
func (p *Player) Next(ctx context.Context) error {
	return p.do(ctx, func(p *Player) error {
		if p.opts.Show == nil {
			return ErrNoShow
		}
		p.held = false
		return p.opts.Show.Next(p.anim)
	})
}

// Reverse flips the direction of the active pattern.
func (p *Player) Reverse(ctx context.Context) error {
	return p.do(ctx, func(p *Player) error {
		p.anim.ReverseDirection()
		return nil
	})
}

// SetPaused pauses or resumes stepping. A paused player keeps its frame.
func (p *Player) SetPaused(ctx context.Context, paused bool) error {
	return p.do(ctx, func(p *Player) error {
		p.paused = paused
		return nil
	})
}

// Status returns a snapshot of the player.
func (p *Player) Status(ctx context.Context) (Status, error) {
	var status Status
	err := p.do(ctx, func(p *Player) error {
		status = Status{
			Pattern:    p.anim.Pattern().String(),
			Direction:  p.anim.Direction().String(),
			Index:      p.anim.Index(),
			TotalSteps: p.anim.TotalSteps(),
			Interval:   p.anim.Interval(),
			Step:       p.step(),
			Paused:     p.paused,
			Frames:     p.seq,
		}
		return nil
	})
	return status, err
}
