// Package show sequences patterns into a looping playlist. A Show listens
// for pattern completions and moves to the next step once the current one
// has completed the requested number of times.
package show

import (
	"errors"
	"fmt"
	"log/slog"

	"dev.acmcsuf.com/patternd/animator"
)

// Step is a single entry in a show.
type Step struct {
	// Name is an optional label used in logs.
	Name string
	// Pattern is the pattern to play.
	Pattern animator.PatternConfig
	// Repeat is the number of completions to play before moving on. Values
	// below 1 are treated as 1.
	Repeat int
}

func (s Step) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Pattern.Kind.String()
}

// ErrNoSteps is returned when creating a show with no steps.
var ErrNoSteps = errors.New("show has no steps")

// Show is a looping playlist of steps. It implements
// animator.CompletionHandler and, like the Animator, is not safe for
// concurrent use.
type Show struct {
	steps       []Step
	current     int
	completions int
	logger      *slog.Logger
}

var _ animator.CompletionHandler = (*Show)(nil)

// New creates a show from steps. The steps slice is copied.
func New(steps []Step, logger *slog.Logger) (*Show, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Show{
		steps:  append([]Step(nil), steps...),
		logger: logger,
	}, nil
}

// Steps returns the number of steps in the show.
func (s *Show) Steps() int { return len(s.steps) }

// Current returns the index and value of the step being played.
func (s *Show) Current() (int, Step) { return s.current, s.steps[s.current] }

// Start configures a with the current step.
func (s *Show) Start(a *animator.Animator) error {
	s.completions = 0
	return s.play(a)
}

// Next skips to the following step, wrapping to the first after the last.
func (s *Show) Next(a *animator.Animator) error {
	s.current = (s.current + 1) % len(s.steps)
	s.completions = 0
	return s.play(a)
}

// PatternCompleted implements animator.CompletionHandler.
func (s *Show) PatternCompleted(a *animator.Animator) {
	s.completions++
	if s.completions < max(s.steps[s.current].Repeat, 1) {
		return
	}

	if err := s.Next(a); err != nil {
		s.logger.Error(
			"failed to play next show step",
			"step", s.current,
			"error", err)
	}
}

func (s *Show) play(a *animator.Animator) error {
	step := s.steps[s.current]

	s.logger.Info(
		"playing show step",
		"step", s.current,
		"name", step.label(),
		"repeat", max(step.Repeat, 1))

	if err := a.Configure(step.Pattern); err != nil {
		return fmt.Errorf("failed to configure step %d (%s): %w", s.current, step.label(), err)
	}
	return nil
}
