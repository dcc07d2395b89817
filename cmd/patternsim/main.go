// Command patternsim plays patterns on a simulated strip in the terminal.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"dev.acmcsuf.com/christmas/lib/leddraw"
	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/patternd/animator"
	"dev.acmcsuf.com/patternd/lib8"
	"dev.acmcsuf.com/patternd/show"
	"github.com/gdamore/tcell/v2"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

var (
	numLEDs  = 60
	interval = 50 * time.Millisecond
	showFile = ""
	logFile  = ""
	verbose  = false
)

func init() {
	pflag.IntVarP(&numLEDs, "num-leds", "n", numLEDs, "number of simulated LEDs")
	pflag.DurationVarP(&interval, "interval", "i", interval, "step interval of patterns picked with the keyboard")
	pflag.StringVarP(&showFile, "show", "s", showFile, "YAML show file to play until a pattern is picked")
	pflag.StringVar(&logFile, "log-file", logFile, "file to write logs to, since the terminal is taken")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	logger := slog.New(slog.DiscardHandler)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalln("failed to open log file:", err)
		}
		defer f.Close()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		logger = slog.New(tint.NewHandler(f, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05 PM", // extended time.Kitchen
			NoColor:    true,
		}))
	}

	if err := run(logger); err != nil {
		log.Fatal(err)
	}
}

// keyPatterns are the patterns bound to the number keys, in order.
var keyPatterns = []animator.PatternConfig{
	{Kind: animator.RainbowCycle},
	{Kind: animator.TheaterChase, Color1: xcolor.RGB{R: 255, G: 255}, Color2: xcolor.RGB{R: 50, B: 50}},
	{Kind: animator.ColorWipe, Color1: xcolor.RGB{G: 255}},
	{Kind: animator.Scanner, Color1: xcolor.RGB{R: 255}},
	{Kind: animator.Cylon},
	{Kind: animator.Fade, Color1: xcolor.RGB{R: 255}, Color2: xcolor.RGB{B: 255}, Steps: 64},
	{Kind: animator.MovingPalette, Brightness: 255},
}

func init() {
	party, _ := lib8.NamedPalette("party")
	for i := range keyPatterns {
		if keyPatterns[i].Kind == animator.MovingPalette {
			keyPatterns[i].Palette = party
		}
	}
}

type simulator struct {
	screen tcell.Screen
	strip  leddraw.LEDStrip
	anim   *animator.Animator
	show   *show.Show
	logger *slog.Logger

	paused      bool
	completions int
}

func run(logger *slog.Logger) error {
	sim := &simulator{
		strip:  make(leddraw.LEDStrip, numLEDs),
		logger: logger,
	}

	anim, err := animator.New(sim.strip, animator.Opts{
		OnComplete: animator.CompletionFunc(sim.patternCompleted),
		Logger:     logger.With("component", "animator"),
	})
	if err != nil {
		return fmt.Errorf("failed to create animator: %w", err)
	}
	sim.anim = anim

	if showFile != "" {
		steps, err := show.Load(showFile)
		if err != nil {
			return fmt.Errorf("failed to load show %q: %w", showFile, err)
		}

		sim.show, err = show.New(steps, logger.With("component", "show"))
		if err != nil {
			return fmt.Errorf("failed to create show: %w", err)
		}

		if err := sim.show.Start(anim); err != nil {
			return fmt.Errorf("failed to start show: %w", err)
		}
	} else {
		sim.selectPattern(0)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer screen.Fini()

	sim.screen = screen
	sim.loop()

	return nil
}

func (s *simulator) patternCompleted(a *animator.Animator) {
	s.completions++
	if s.show != nil {
		s.show.PatternCompleted(a)
	}
}

// selectPattern plays the i-th key pattern and stops following the show.
func (s *simulator) selectPattern(i int) {
	if i < 0 || i >= len(keyPatterns) {
		return
	}

	cfg := keyPatterns[i]
	cfg.Interval = interval

	s.show = nil
	s.completions = 0

	if err := s.anim.Configure(cfg); err != nil {
		s.logger.Error(
			"failed to select pattern",
			"pattern", cfg.Kind,
			"error", err)
	}
}

func (s *simulator) loop() {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	eventCh := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			eventCh <- ev
		}
	}()

	s.draw()

	for {
		select {
		case ev := <-eventCh:
			if !s.handleEvent(ev) {
				return
			}
			s.draw()

		case <-ticker.C:
			if s.paused {
				continue
			}
			if s.anim.Update() {
				s.draw()
			}
		}
	}
}

func (s *simulator) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch r := ev.Rune(); {
			case r == 'q':
				return false
			case r == ' ':
				s.paused = !s.paused
			case r == 'r':
				s.anim.ReverseDirection()
			case r >= '1' && r <= '9':
				s.selectPattern(int(r - '1'))
			}
		}

	case *tcell.EventResize:
		s.screen.Sync()
	}

	return true
}

func (s *simulator) draw() {
	s.screen.Clear()

	width, height := s.screen.Size()
	perRow := max(width/2, 1)

	for i, led := range s.strip {
		x, y := (i%perRow)*2, i/perRow
		if y >= height-1 {
			break
		}

		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(led.R), int32(led.G), int32(led.B)))
		s.screen.SetContent(x, y, '█', nil, style)
		s.screen.SetContent(x+1, y, '█', nil, style)
	}

	state := "playing"
	if s.paused {
		state = "paused"
	}

	status := fmt.Sprintf(
		"%s %s  step %d/%d  completions %d  %s  [1-7] pattern [space] pause [r] reverse [q] quit",
		s.anim.Pattern(), s.anim.Direction(),
		s.anim.Index(), s.anim.TotalSteps(),
		s.completions, state)

	for x, r := range []rune(status) {
		if x >= width {
			break
		}
		s.screen.SetContent(x, height-1, r, nil, tcell.StyleDefault)
	}

	s.screen.Show()
}
