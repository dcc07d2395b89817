package patternd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/patternd/animator"
	"dev.acmcsuf.com/patternd/show"
	"github.com/neilotoole/slogt"
)

func startTestPlayer(t *testing.T, ctx context.Context, opts PlayerOpts) *Player {
	t.Helper()

	player, err := NewPlayer(opts)
	if err != nil {
		t.Fatal("failed to create player:", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)

	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Error("player error:", err)
		}
	})

	go func() {
		errCh <- player.Run(ctx)
	}()

	return player
}

func waitEvent(t *testing.T, events <-chan Event, typ EventType) Event {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", typ)
			return Event{}
		}
	}
}

func testShow(t *testing.T, interval time.Duration) *show.Show {
	t.Helper()

	s, err := show.New([]show.Step{
		{
			Pattern: animator.PatternConfig{Kind: animator.ColorWipe, Interval: interval},
		},
		{
			Pattern: animator.PatternConfig{Kind: animator.Fade, Steps: 2, Interval: interval},
		},
	}, slogt.New(t))
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestPlayerShow(t *testing.T) {
	ctx := context.Background()

	player, err := NewPlayer(PlayerOpts{
		Strip:  make(leddraw.LEDStrip, 3),
		Show:   testShow(t, time.Millisecond),
		Logger: slogt.New(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	events, unsubscribe := player.Subscribe(EventPattern, EventComplete)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go player.Run(ctx)

	ev := waitEvent(t, events, EventPattern)
	assertEq(t, animator.ColorWipe, ev.Pattern)
	assertEq(t, 0, ev.Step)

	ev = waitEvent(t, events, EventComplete)
	assertEq(t, animator.ColorWipe, ev.Pattern)

	ev = waitEvent(t, events, EventPattern)
	assertEq(t, animator.Fade, ev.Pattern)
	assertEq(t, 1, ev.Step)

	ev = waitEvent(t, events, EventPattern)
	assertEq(t, animator.ColorWipe, ev.Pattern)
	assertEq(t, 0, ev.Step)
}

func TestPlayerSelectHoldsShow(t *testing.T) {
	ctx := context.Background()
	player := startTestPlayer(t, ctx, PlayerOpts{
		Strip:  make(leddraw.LEDStrip, 3),
		Show:   testShow(t, time.Hour),
		Logger: slogt.New(t),
	})

	events, unsubscribe := player.Subscribe(EventComplete)
	defer unsubscribe()

	if err := player.Select(ctx, animator.PatternConfig{Kind: animator.Cylon, Interval: time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	// Cylon keeps playing through its completions.
	waitEvent(t, events, EventComplete)
	waitEvent(t, events, EventComplete)

	status, err := player.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, "cylon", status.Pattern)
	assertEq(t, -1, status.Step)

	if err := player.Next(ctx); err != nil {
		t.Fatal(err)
	}

	status, err = player.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, "fade", status.Pattern)
	assertEq(t, 1, status.Step)
}

func TestPlayerNextWithoutShow(t *testing.T) {
	ctx := context.Background()
	player := startTestPlayer(t, ctx, PlayerOpts{
		Strip:  make(leddraw.LEDStrip, 3),
		Logger: slogt.New(t),
	})

	if err := player.Next(ctx); !errors.Is(err, ErrNoShow) {
		t.Fatalf("expected ErrNoShow, got %v", err)
	}
}

func TestPlayerOutputAndPause(t *testing.T) {
	ctx := context.Background()

	var writes atomic.Int64
	output := OutputFunc(func(strip leddraw.LEDStrip) error {
		writes.Add(1)
		return nil
	})

	player := startTestPlayer(t, ctx, PlayerOpts{
		Strip:  make(leddraw.LEDStrip, 5),
		Output: output,
		Logger: slogt.New(t),
	})

	frames, unsubscribe := player.Subscribe(EventFrame)
	defer unsubscribe()

	if err := player.Select(ctx, animator.PatternConfig{Kind: animator.RainbowCycle, Interval: time.Millisecond}); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, frames, EventFrame)
	assertEq(t, 5, len(ev.LEDs))
	assertEq(t, animator.RainbowCycle, ev.Pattern)

	if err := player.SetPaused(ctx, true); err != nil {
		t.Fatal(err)
	}

	// Once the pause command has been applied no more frames are written.
	status, err := player.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Paused {
		t.Fatal("player is not paused")
	}

	before := writes.Load()
	time.Sleep(20 * time.Millisecond)
	assertEq(t, before, writes.Load())

	status, err = player.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, uint64(before), status.Frames)
}

func TestPlayerCommandWithoutRun(t *testing.T) {
	player, err := NewPlayer(PlayerOpts{Strip: make(leddraw.LEDStrip, 1)})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := player.Status(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewPlayerEmptyStrip(t *testing.T) {
	if _, err := NewPlayer(PlayerOpts{}); !errors.Is(err, animator.ErrEmptyStrip) {
		t.Fatalf("expected ErrEmptyStrip, got %v", err)
	}
}
