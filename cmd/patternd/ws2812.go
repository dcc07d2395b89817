package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/patternd"
	"github.com/cnf/structhash"
	"libdb.so/ledctl"
)

var ws281xConfig = ledctl.WS281xConfig{
	ColorOrder:   ledctl.BGROrder,
	ColorModel:   ledctl.RGBModel,
	PWMFrequency: 800000,
	DMAChannel:   10,
	GPIOPins:     []int{12},
}

// RGBController is a controller for RGB LEDs.
type RGBController interface {
	SetRGBAt(i int, color ledctl.RGB)
	Flush() error
}

// ledController pushes player frames to a WS281x strip. Frames arriving
// faster than the frame rate are coalesced, and frames identical to the last
// flushed one are dropped.
type ledController struct {
	logger *slog.Logger

	drawCh chan struct{}
	ctrl   RGBController
	ctrlMu sync.Mutex
	last   []byte

	cfg ledControlConfig
}

var _ patternd.Output = (*ledController)(nil)

type ledControlConfig struct {
	// Controller overrides the WS281x controller, mostly for testing.
	Controller RGBController
	NumLEDs    int
	FrameRate  int

	Logger *slog.Logger
}

func newLEDController(cfg ledControlConfig) (*ledController, error) {
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", cfg.FrameRate)
	}

	if cfg.Controller == nil {
		ws281xCfg := ws281xConfig
		ws281xCfg.NumPixels = cfg.NumLEDs

		ws281x, err := ledctl.NewWS281x(ws281xCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create a WS281x controller: %w", err)
		}
		cfg.Controller = ws281x
	}

	return &ledController{
		logger: cfg.Logger,
		drawCh: make(chan struct{}, 1),
		ctrl:   cfg.Controller,
		cfg:    cfg,
	}, nil
}

func (c *ledController) start(ctx context.Context) {
	drawCh := c.drawCh

	frameTicker := time.NewTicker(time.Second / time.Duration(c.cfg.FrameRate))
	defer frameTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-frameTicker.C:
			drawCh = c.drawCh
			continue
		case <-drawCh:
			drawCh = nil
		}

		c.ctrlMu.Lock()
		if err := c.ctrl.Flush(); err != nil {
			c.logger.Error(
				"error writing LED strip",
				"error", err)
		}
		c.ctrlMu.Unlock()
	}
}

type ledFrame struct {
	LEDs leddraw.LEDStrip
}

// SetLEDs implements patternd.Output.
func (c *ledController) SetLEDs(strip leddraw.LEDStrip) error {
	hash := structhash.Md5(ledFrame{LEDs: strip}, 1)

	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()

	if bytes.Equal(hash, c.last) {
		return nil
	}
	c.last = hash

	for i, color := range strip {
		c.ctrl.SetRGBAt(i, ledctl.RGB(color))
	}

	c.queueDraw()
	return nil
}

func (c *ledController) queueDraw() {
	select {
	case c.drawCh <- struct{}{}:
	default:
	}
}
