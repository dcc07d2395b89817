package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/patternd/show"
	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
	"libdb.so/ledctl"
)

type fakeRGBController struct {
	mu      sync.Mutex
	leds    []ledctl.RGB
	sets    int
	flushed chan []ledctl.RGB
}

func newFakeRGBController(n int) *fakeRGBController {
	return &fakeRGBController{
		leds:    make([]ledctl.RGB, n),
		flushed: make(chan []ledctl.RGB, 16),
	}
}

func (c *fakeRGBController) SetRGBAt(i int, color ledctl.RGB) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leds[i] = color
	c.sets++
}

func (c *fakeRGBController) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed <- append([]ledctl.RGB(nil), c.leds...)
	return nil
}

func TestLEDControllerSkipsUnchangedFrames(t *testing.T) {
	fake := newFakeRGBController(2)

	controller, err := newLEDController(ledControlConfig{
		Controller: fake,
		NumLEDs:    2,
		FrameRate:  1000,
		Logger:     slogt.New(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go controller.start(ctx)

	strip := leddraw.LEDStrip{{R: 1}, {G: 2}}
	controller.SetLEDs(strip)
	controller.SetLEDs(strip)

	select {
	case leds := <-fake.flushed:
		assertEq(t, []ledctl.RGB{{R: 1}, {G: 2}}, leds)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for flush")
	}

	fake.mu.Lock()
	sets := fake.sets
	fake.mu.Unlock()
	assertEq(t, 2, sets)

	strip[0].B = 3
	controller.SetLEDs(strip)

	fake.mu.Lock()
	sets = fake.sets
	fake.mu.Unlock()
	assertEq(t, 4, sets)
}

func TestPatchPatternRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     patchPatternRequest
		spec    show.StepSpec
		wantErr bool
	}{
		{
			name: "plain",
			req:  patchPatternRequest{Pattern: "fade", Steps: "32", Color1: "#ff0000"},
			spec: show.StepSpec{Pattern: "fade", Steps: 32, Color1: "#ff0000"},
		},
		{
			name: "palette",
			req:  patchPatternRequest{Pattern: "moving-palette", Palette: "#ff0000,#0000ff", Brightness: "128"},
			spec: show.StepSpec{
				Pattern:    "moving-palette",
				Palette:    show.PaletteSpec{"#ff0000", "#0000ff"},
				Brightness: ptr(uint8(128)),
			},
		},
		{
			name:    "bad brightness",
			req:     patchPatternRequest{Pattern: "moving-palette", Brightness: "300"},
			wantErr: true,
		},
		{
			name:    "bad steps",
			req:     patchPatternRequest{Pattern: "fade", Steps: "many"},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec, err := test.req.stepSpec()
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			assertEq(t, test.spec, spec)
		})
	}
}

func assertEq[T any](t *testing.T, expected, actual T, opts ...cmp.Option) {
	t.Helper()

	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}

func ptr[T any](v T) *T { return &v }
